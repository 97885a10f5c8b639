package transaction

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the canonical, bank-agnostic ledger row.
type Transaction struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"accountId"`
	BankReferenceID string          `json:"bankReferenceId"`
	Timestamp       time.Time       `json:"timestamp"` // bank-local wall clock, no zone conversion
	Amount          decimal.Decimal `json:"amount"`    // positive = inflow, negative = outflow
	Description     string          `json:"description"`
	Counterparty    string          `json:"counterparty"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	Raw             json.RawMessage `json:"raw"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Result summarizes one reconciliation of a batch into the ledger.
type Result struct {
	// Received counts the non-nil entries of the batch.
	Received int
	Inserted int
	Skipped  int

	// Balance and BalanceAt mirror the account's cached balance after the
	// run. Nil when the account has no transactions at all.
	Balance   *decimal.Decimal
	BalanceAt *time.Time
}
