package transaction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store gives the reconciler an atomic unit of work per account. The
// implementation must hold an account-scoped lock (row lock, advisory lock)
// for the whole of fn and commit or roll back everything fn did.
type Store interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context, ledger Ledger) error) error
}

// Ledger is the write path into the transaction ledger. Only the
// Reconciler uses it.
type Ledger interface {
	// ExistingReferences returns the subset of refs already stored for the account.
	ExistingReferences(ctx context.Context, accountID string, refs []string) (map[string]bool, error)

	// Insert stores tx. It returns a *bank.ConflictError when the
	// (account, reference) pair is already present.
	Insert(ctx context.Context, tx *Transaction) error

	// Latest returns the chronologically latest transaction of the account,
	// ties broken by insertion order, or nil when there is none.
	Latest(ctx context.Context, accountID string) (*Transaction, error)

	// SetCachedBalance updates the account's cached balance fields.
	SetCachedBalance(ctx context.Context, accountID string, balance decimal.Decimal, at time.Time) error
}

// Reader is the read side used by reporting.
type Reader interface {
	ListBetween(ctx context.Context, accountID string, from, to time.Time) ([]*Transaction, error)
	ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)
}
