package account

import "context"

// Repository defines the interface for bank account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// Create registers a new bank account
	Create(ctx context.Context, params CreateParams) (*BankAccount, error)

	// GetByID retrieves an account by its ID, or ErrAccountNotFound
	GetByID(ctx context.Context, id string) (*BankAccount, error)

	// ListActive retrieves every active account
	ListActive(ctx context.Context) ([]*BankAccount, error)

	// ListByInstitution retrieves the accounts owned by an institution
	ListByInstitution(ctx context.Context, institutionID string) ([]*BankAccount, error)

	// SetActive toggles whether the account takes part in scheduled syncs
	SetActive(ctx context.Context, id string, active bool) error

	// GetCredentialBlob returns the encrypted credential blob, empty when none is stored
	GetCredentialBlob(ctx context.Context, id string) (string, error)

	// SetCredentialBlob replaces the encrypted credential blob
	SetCredentialBlob(ctx context.Context, id string, blob string) error

	// SetIBAN stores the IBAN
	SetIBAN(ctx context.Context, id string, iban string) error
}

// Cipher encrypts credential blobs at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
