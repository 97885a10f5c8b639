package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
)

const accountColumns = `id, institution_id, variant, name, account_number, iban, currency,
	last_balance, last_balance_update, active,
	(credentials IS NOT NULL AND credentials <> '') AS has_credentials,
	created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create registers a new bank account
func (r *AccountRepository) Create(ctx context.Context, params account.CreateParams) (*account.BankAccount, error) {
	query := `
		INSERT INTO bank_accounts (id, institution_id, variant, name, account_number, iban, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRowContext(
		ctx, query,
		uuid.New().String(), params.InstitutionID, params.Variant.String(), params.Name,
		nullString(params.AccountNumber), nullString(params.IBAN), params.Currency,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.BankAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE id = $1`

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// ListActive retrieves every active account, oldest first
func (r *AccountRepository) ListActive(ctx context.Context) ([]*account.BankAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM bank_accounts
		WHERE active
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	return collectAccounts(rows)
}

// ListByInstitution retrieves the accounts owned by an institution
func (r *AccountRepository) ListByInstitution(ctx context.Context, institutionID string) ([]*account.BankAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM bank_accounts
		WHERE institution_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list institution accounts: %w", err)
	}
	return collectAccounts(rows)
}

// SetActive toggles the active flag
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bank_accounts SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

// GetCredentialBlob returns the encrypted credential blob
func (r *AccountRepository) GetCredentialBlob(ctx context.Context, id string) (string, error) {
	var blob sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT credentials FROM bank_accounts WHERE id = $1`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", account.ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials: %w", err)
	}
	return blob.String, nil
}

// SetCredentialBlob replaces the encrypted credential blob
func (r *AccountRepository) SetCredentialBlob(ctx context.Context, id string, blob string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bank_accounts SET credentials = $2, updated_at = NOW() WHERE id = $1`, id, nullString(blob))
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

// SetIBAN stores the IBAN
func (r *AccountRepository) SetIBAN(ctx context.Context, id string, iban string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bank_accounts SET iban = $2, updated_at = NOW() WHERE id = $1`, id, nullString(iban))
	if err != nil {
		return fmt.Errorf("failed to update IBAN: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

func scanAccount(row rowScanner) (*account.BankAccount, error) {
	var acc account.BankAccount
	var variant string
	var accountNumber, iban sql.NullString
	var lastBalance decimal.NullDecimal
	var lastBalanceUpdate sql.NullTime

	err := row.Scan(
		&acc.ID, &acc.InstitutionID, &variant, &acc.Name, &accountNumber, &iban, &acc.Currency,
		&lastBalance, &lastBalanceUpdate, &acc.Active, &acc.HasCredentials,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v, err := bank.ParseVariant(variant)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", acc.ID, err)
	}
	acc.Variant = v
	acc.AccountNumber = accountNumber.String
	acc.IBAN = iban.String
	if lastBalance.Valid {
		balance := lastBalance.Decimal
		acc.LastBalance = &balance
	}
	if lastBalanceUpdate.Valid {
		at := lastBalanceUpdate.Time
		acc.LastBalanceUpdate = &at
	}
	return &acc, nil
}

func collectAccounts(rows *sql.Rows) ([]*account.BankAccount, error) {
	defer rows.Close()

	var accounts []*account.BankAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}
