package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/transaction"
)

const transactionColumns = `id, account_id, bank_reference_id, transaction_time, amount,
	description, counterparty, balance_after, raw, created_at`

// LedgerStore implements transaction.Store. The account row lock taken by
// WithAccountLock serializes every ledger write for that account across
// processes.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new PostgreSQL ledger store
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithAccountLock runs fn in one transaction holding the account row lock.
func (s *LedgerStore) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, ledger transaction.Ledger) error) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM bank_accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
		if err == sql.ErrNoRows {
			return account.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		return fn(ctx, &txLedger{q: tx})
	})
}

type txLedger struct {
	q queryer
}

func (l *txLedger) ExistingReferences(ctx context.Context, accountID string, refs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(refs) == 0 {
		return existing, nil
	}

	query := `
		SELECT bank_reference_id
		FROM bank_transactions
		WHERE account_id = $1 AND bank_reference_id = ANY($2)
	`
	rows, err := l.q.QueryContext(ctx, query, accountID, pq.Array(refs))
	if err != nil {
		return nil, fmt.Errorf("failed to look up references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		existing[ref] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating references: %w", err)
	}
	return existing, nil
}

func (l *txLedger) Insert(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO bank_transactions (id, account_id, bank_reference_id, transaction_time, amount,
			description, counterparty, balance_after, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, bank_reference_id) DO NOTHING
		RETURNING created_at
	`
	err := l.q.QueryRowContext(ctx, query,
		t.ID, t.AccountID, t.BankReferenceID, t.Timestamp, t.Amount,
		t.Description, t.Counterparty, t.BalanceAfter, nullString(string(t.Raw)),
	).Scan(&t.CreatedAt)

	if err == sql.ErrNoRows {
		return &bank.ConflictError{AccountID: t.AccountID, Reference: t.BankReferenceID}
	}
	if isUniqueViolation(err) {
		return &bank.ConflictError{AccountID: t.AccountID, Reference: t.BankReferenceID, Err: err}
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (l *txLedger) Latest(ctx context.Context, accountID string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE account_id = $1
		ORDER BY transaction_time DESC, seq DESC
		LIMIT 1
	`
	t, err := scanTransaction(l.q.QueryRowContext(ctx, query, accountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest transaction: %w", err)
	}
	return t, nil
}

func (l *txLedger) SetCachedBalance(ctx context.Context, accountID string, balance decimal.Decimal, at time.Time) error {
	query := `
		UPDATE bank_accounts
		SET last_balance = $2, last_balance_update = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := l.q.ExecContext(ctx, query, accountID, balance, at)
	if err != nil {
		return fmt.Errorf("failed to update cached balance: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var raw sql.NullString

	err := row.Scan(
		&t.ID, &t.AccountID, &t.BankReferenceID, &t.Timestamp, &t.Amount,
		&t.Description, &t.Counterparty, &t.BalanceAfter, &raw, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if raw.Valid {
		t.Raw = []byte(raw.String)
	}
	return &t, nil
}

// expectOneRow maps an update that touched nothing to notFound.
func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
