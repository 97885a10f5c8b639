// Package transactiontest provides an in-memory ledger for tests.
package transactiontest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/transaction"
)

// CachedBalance is what the store holds on the account row.
type CachedBalance struct {
	Balance decimal.Decimal
	At      time.Time
}

// MemStore implements transaction.Store and transaction.Reader. Changes made
// inside WithAccountLock are only committed when fn returns nil.
type MemStore struct {
	mu       sync.Mutex
	rows     map[string][]*transaction.Transaction
	balances map[string]CachedBalance

	// HideExisting makes ExistingReferences report nothing, forcing Insert
	// to hit the uniqueness check.
	HideExisting bool
	// FailLatest is returned from Latest when set.
	FailLatest error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		rows:     map[string][]*transaction.Transaction{},
		balances: map[string]CachedBalance{},
	}
}

func (s *MemStore) WithAccountLock(ctx context.Context, accountID string, fn func(context.Context, transaction.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &memLedger{store: s}
	if err := fn(ctx, l); err != nil {
		return err
	}
	s.rows[accountID] = append(s.rows[accountID], l.pending...)
	if l.balance != nil {
		s.balances[accountID] = *l.balance
	}
	return nil
}

// Count returns the number of committed rows for the account.
func (s *MemStore) Count(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[accountID])
}

// Rows returns the committed rows in insertion order.
func (s *MemStore) Rows(accountID string) []*transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*transaction.Transaction{}, s.rows[accountID]...)
}

// Balance returns the cached balance, if one was ever set.
func (s *MemStore) Balance(accountID string) (CachedBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[accountID]
	return b, ok
}

func (s *MemStore) ListBetween(_ context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
	var out []*transaction.Transaction
	for _, tx := range s.Rows(accountID) {
		if !tx.Timestamp.Before(from) && !tx.Timestamp.After(to) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemStore) ListByAccountID(_ context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	rows := s.Rows(accountID)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

type memLedger struct {
	store   *MemStore
	pending []*transaction.Transaction
	balance *CachedBalance
}

func (l *memLedger) all(accountID string) []*transaction.Transaction {
	out := append([]*transaction.Transaction{}, l.store.rows[accountID]...)
	for _, tx := range l.pending {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

func (l *memLedger) ExistingReferences(_ context.Context, accountID string, refs []string) (map[string]bool, error) {
	found := map[string]bool{}
	if l.store.HideExisting {
		return found, nil
	}
	want := map[string]bool{}
	for _, r := range refs {
		want[r] = true
	}
	for _, tx := range l.all(accountID) {
		if want[tx.BankReferenceID] {
			found[tx.BankReferenceID] = true
		}
	}
	return found, nil
}

func (l *memLedger) Insert(_ context.Context, tx *transaction.Transaction) error {
	for _, existing := range l.all(tx.AccountID) {
		if existing.BankReferenceID == tx.BankReferenceID {
			return &bank.ConflictError{AccountID: tx.AccountID, Reference: tx.BankReferenceID}
		}
	}
	l.pending = append(l.pending, tx)
	return nil
}

func (l *memLedger) Latest(_ context.Context, accountID string) (*transaction.Transaction, error) {
	if l.store.FailLatest != nil {
		return nil, l.store.FailLatest
	}
	var latest *transaction.Transaction
	for _, tx := range l.all(accountID) {
		if latest == nil || !tx.Timestamp.Before(latest.Timestamp) {
			latest = tx
		}
	}
	return latest, nil
}

func (l *memLedger) SetCachedBalance(_ context.Context, _ string, balance decimal.Decimal, at time.Time) error {
	l.balance = &CachedBalance{Balance: balance, At: at}
	return nil
}
