package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DailyBalance is the closing balance of one calendar day.
type DailyBalance struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
	// Movements is the number of transactions booked that day.
	Movements int `json:"movements"`
}

// History returns one closing balance per day that has movements in
// [from, to], oldest first. Days without movements are omitted.
func History(ctx context.Context, reader Reader, accountID string, from, to time.Time) ([]DailyBalance, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("history range ends before it starts")
	}
	txs, err := reader.ListBetween(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return ClosingBalances(txs), nil
}

// HistoryWindow returns the bounds of the last `days` calendar days up to
// and including now's date. Ledger timestamps are bank-local wall clock kept
// in UTC, so the bounds are built the same way.
func HistoryWindow(now time.Time, days int) (from, to time.Time) {
	if days < 1 {
		days = 1
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1)), today.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ClosingBalances groups txs by day and keeps the balance of the latest
// movement of each day. txs must be in ledger order (timestamp, then
// insertion) for ties to resolve the same way as the cached balance.
func ClosingBalances(txs []*Transaction) []DailyBalance {
	var (
		out  []DailyBalance
		day  []*Transaction
		last time.Time
	)
	flush := func() {
		if len(day) == 0 {
			return
		}
		closing := latestOf(day)
		out = append(out, DailyBalance{Date: last, Balance: closing.BalanceAfter, Movements: len(day)})
		day = day[:0]
	}
	for _, tx := range txs {
		d := truncateDay(tx.Timestamp)
		if len(day) > 0 && !d.Equal(last) {
			flush()
		}
		last = d
		day = append(day, tx)
	}
	flush()
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
