package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"bankledger/internal/domain/bank"
)

// Service contains the business logic for bank account operations
type Service struct {
	repo   Repository
	cipher Cipher
}

// NewService creates a new account service
func NewService(repo Repository, cipher Cipher) *Service {
	return &Service{repo: repo, cipher: cipher}
}

// CreateAccount registers a bank account with business validation
func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (*BankAccount, error) {
	if params.Currency == "" {
		params.Currency = DefaultCurrency
	}
	params.IBAN = NormalizeIBAN(params.IBAN)

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, accountID string) (*BankAccount, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrAccountNotFound
	}
	return s.repo.GetByID(ctx, accountID)
}

// ListActiveAccounts retrieves all accounts that take part in scheduled syncs
func (s *Service) ListActiveAccounts(ctx context.Context) ([]*BankAccount, error) {
	return s.repo.ListActive(ctx)
}

// ListInstitutionAccounts retrieves the accounts of one institution
func (s *Service) ListInstitutionAccounts(ctx context.Context, institutionID string) ([]*BankAccount, error) {
	return s.repo.ListByInstitution(ctx, institutionID)
}

// SetActive enables or disables syncing for an account
func (s *Service) SetActive(ctx context.Context, accountID string, active bool) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, accountID, active)
}

// SaveCredentials validates fields against the account's variant schema and
// stores them encrypted. Secret fields left blank keep their stored value.
func (s *Service) SaveCredentials(ctx context.Context, accountID string, fields map[string]string) error {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	stored, err := s.storedFields(ctx, accountID)
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return err
	}

	merged, err := bank.MergeForUpdate(acc.Variant, fields, stored)
	if err != nil {
		return err
	}
	creds, err := bank.ParseCredentials(acc.Variant, merged)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(creds.Fields())
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	blob, err := s.cipher.Encrypt(string(plain))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return s.repo.SetCredentialBlob(ctx, accountID, blob)
}

// LoadCredentials decrypts the stored blob into the variant's typed credentials.
func (s *Service) LoadCredentials(ctx context.Context, accountID string) (bank.Credentials, error) {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	fields, err := s.storedFields(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return bank.ParseCredentials(acc.Variant, fields)
}

// CredentialView returns the stored non-secret credential fields, for
// re-rendering a credential form.
func (s *Service) CredentialView(ctx context.Context, accountID string) (map[string]string, error) {
	creds, err := s.LoadCredentials(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return bank.PublicFields(creds), nil
}

// RecordDiscoveredIBAN stores an IBAN reported by the bank when the account
// has none yet. It reports whether the account was updated. A different IBAN
// already on file is left untouched.
func (s *Service) RecordDiscoveredIBAN(ctx context.Context, accountID, iban string) (bool, error) {
	iban = NormalizeIBAN(iban)
	if iban == "" {
		return false, nil
	}
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}

	switch current := NormalizeIBAN(acc.IBAN); {
	case current == iban:
		return false, nil
	case current != "":
		log.Printf("Account %s: bank reported IBAN %s but %s is on file, keeping stored value", accountID, iban, current)
		return false, nil
	}

	if err := s.repo.SetIBAN(ctx, accountID, iban); err != nil {
		return false, fmt.Errorf("failed to store IBAN: %w", err)
	}
	return true, nil
}

func (s *Service) storedFields(ctx context.Context, accountID string) (map[string]string, error) {
	blob, err := s.repo.GetCredentialBlob(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if blob == "" {
		return nil, ErrNoCredentials
	}
	plain, err := s.cipher.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(plain), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return fields, nil
}
