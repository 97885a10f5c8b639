package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"bankledger/internal/domain/bank"
)

var (
	ledgerTracer      = otel.Tracer("bankledger/ledger")
	ledgerMeter       = otel.Meter("bankledger/ledger")
	ledgerInserted, _ = ledgerMeter.Int64Counter("ledger.transactions.inserted", metric.WithDescription("Transactions inserted into the ledger"))
	ledgerSkipped, _  = ledgerMeter.Int64Counter("ledger.transactions.skipped", metric.WithDescription("Transactions skipped as already present"))
)

// Reconciler merges canonical transactions into the ledger and keeps the
// account's cached balance equal to its chronologically latest row.
type Reconciler struct {
	store Store
	locks *KeyedMutex
	newID func() string
}

// NewReconciler creates a Reconciler writing through store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{
		store: store,
		locks: NewKeyedMutex(),
		newID: func() string { return uuid.NewString() },
	}
}

// Reconcile inserts the candidates of batch that are not yet stored and
// recomputes the cached balance from the full ledger of the account.
// Stored rows are never updated.
func (r *Reconciler) Reconcile(ctx context.Context, accountID string, batch []*Transaction) (*Result, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.reconcile", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.Int("batch.size", len(batch)),
	))
	defer span.End()

	candidates, duplicates := dedupeBatch(batch)
	result := &Result{Received: len(candidates) + duplicates, Skipped: duplicates}

	unlock, err := r.locks.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
	}
	defer unlock()

	err = r.store.WithAccountLock(ctx, accountID, func(ctx context.Context, ledger Ledger) error {
		refs := make([]string, len(candidates))
		for i, c := range candidates {
			refs[i] = c.BankReferenceID
		}
		existing, err := ledger.ExistingReferences(ctx, accountID, refs)
		if err != nil {
			return fmt.Errorf("failed to look up existing references: %w", err)
		}

		inserted, skipped := 0, 0
		for _, c := range candidates {
			if existing[c.BankReferenceID] {
				skipped++
				continue
			}
			row := *c
			row.ID = r.newID()
			row.AccountID = accountID
			if err := ledger.Insert(ctx, &row); err != nil {
				if errors.Is(err, bank.ErrConflict) {
					// Another writer stored it between lookup and insert.
					log.Printf("Ledger: absorbed conflict for account %s: %v", accountID, err)
					skipped++
					continue
				}
				return fmt.Errorf("failed to insert transaction %q: %w", c.BankReferenceID, err)
			}
			inserted++
		}

		latest, err := ledger.Latest(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load latest transaction: %w", err)
		}
		if latest != nil {
			if err := ledger.SetCachedBalance(ctx, accountID, latest.BalanceAfter, latest.Timestamp); err != nil {
				return fmt.Errorf("failed to update cached balance: %w", err)
			}
			balance, at := latest.BalanceAfter, latest.Timestamp
			result.Balance, result.BalanceAt = &balance, &at
		}

		result.Inserted = inserted
		result.Skipped += skipped
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ledgerInserted.Add(ctx, int64(result.Inserted))
	ledgerSkipped.Add(ctx, int64(result.Skipped))
	span.SetAttributes(attribute.Int("ledger.inserted", result.Inserted), attribute.Int("ledger.skipped", result.Skipped))
	return result, nil
}

// dedupeBatch drops repeated references (first wins) and orders the rest
// chronologically, keeping the bank's order for equal timestamps. Nil
// entries are dropped without being counted as repeats.
func dedupeBatch(batch []*Transaction) ([]*Transaction, int) {
	seen := make(map[string]bool, len(batch))
	out := make([]*Transaction, 0, len(batch))
	duplicates := 0
	for _, tx := range batch {
		if tx == nil {
			continue
		}
		if seen[tx.BankReferenceID] {
			duplicates++
			continue
		}
		seen[tx.BankReferenceID] = true
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, duplicates
}

// latestOf applies the cached-balance rule to an in-memory slice. The latest
// timestamp wins and a later position breaks ties.
func latestOf(txs []*Transaction) *Transaction {
	var latest *Transaction
	for _, tx := range txs {
		if latest == nil || !tx.Timestamp.Before(latest.Timestamp) {
			latest = tx
		}
	}
	return latest
}
