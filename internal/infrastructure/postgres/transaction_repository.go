package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bankledger/internal/domain/transaction"
)

// TransactionRepository implements transaction.Reader for PostgreSQL
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListBetween returns the account's transactions with from <= time <= to,
// oldest first, in insertion order for equal timestamps.
func (r *TransactionRepository) ListBetween(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE account_id = $1 AND transaction_time >= $2 AND transaction_time <= $3
		ORDER BY transaction_time ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListByAccountID returns the newest transactions first.
func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE account_id = $1
		ORDER BY transaction_time DESC, seq DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}
