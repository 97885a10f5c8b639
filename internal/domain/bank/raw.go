package bank

import (
	"fmt"
	"time"
)

// RawTransaction is one bank-native movement as it appeared on the wire,
// before normalization. Field values are kept as the bank's own strings.
type RawTransaction interface {
	Variant() Variant
	// Reference is the deduplication key within an account.
	Reference() string
	// AuditFields returns the original fields verbatim.
	AuditFields() map[string]string
	isRaw()
}

// RawA is a Variant A movement. The bank supplies no reference number, so
// the adapter synthesizes one from Timestamp and Amount.
type RawA struct {
	ReferenceID string
	Date        string // DD/MM/YYYY
	Timestamp   string // ISO 8601 local date-time, may be empty
	Amount      string // signed, negative for debits
	Description string
	Balance     string
}

func (RawA) Variant() Variant    { return VariantA }
func (r RawA) Reference() string { return r.ReferenceID }
func (RawA) isRaw()              {}

func (r RawA) AuditFields() map[string]string {
	return map[string]string{
		"TransactionDate": r.Date,
		"Timestamp":       r.Timestamp,
		"Amount":          r.Amount,
		"Description":     r.Description,
		"Balance":         r.Balance,
	}
}

// RawB is a Variant B movement.
type RawB struct {
	ReferenceNo  string
	Date         string // DD/MM/YYYY
	Time         string // HH:MM[:SS], may be empty
	Amount       string // "+150,50" / "-100,00"
	Balance      string
	Description  string
	Counterparty string
}

func (RawB) Variant() Variant    { return VariantB }
func (r RawB) Reference() string { return r.ReferenceNo }
func (RawB) isRaw()              {}

func (r RawB) AuditFields() map[string]string {
	return map[string]string{
		"ReferenceNo":      r.ReferenceNo,
		"Date":             r.Date,
		"Time":             r.Time,
		"Amount":           r.Amount,
		"Balance":          r.Balance,
		"Description":      r.Description,
		"CounterpartyName": r.Counterparty,
	}
}

// RawC is a Variant C movement. Amount is an unsigned magnitude; Indicator
// says which way the money moved. HolderName is the account holder as
// reported in the response envelope.
type RawC struct {
	ID          string
	DateTime    string // YYYY-MM-DD HH:MM:SS
	Amount      string
	Indicator   string // D or C
	PayerName   string
	PayeeName   string
	Description string
	Balance     string
	HolderName  string
}

func (RawC) Variant() Variant    { return VariantC }
func (r RawC) Reference() string { return r.ID }
func (RawC) isRaw()              {}

func (r RawC) AuditFields() map[string]string {
	return map[string]string{
		"Id":           r.ID,
		"DateTime":     r.DateTime,
		"Amount":       r.Amount,
		"DebitCredit":  r.Indicator,
		"PayerName":    r.PayerName,
		"PayeeName":    r.PayeeName,
		"Description":  r.Description,
		"BalanceAfter": r.Balance,
		"HolderName":   r.HolderName,
	}
}

// Statement is what an adapter extracts from one response.
type Statement struct {
	IBAN         *string
	Transactions []RawTransaction
}

// Period is an inclusive range of bank-local calendar dates.
type Period struct {
	From time.Time
	To   time.Time
}

// LastDays returns the period covering the `days` days before now plus today.
func LastDays(now time.Time, days int) Period {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Period{From: today.AddDate(0, 0, -days), To: today}
}

// Validate rejects empty or inverted periods.
func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return fmt.Errorf("period bounds are required")
	}
	if p.To.Before(p.From) {
		return fmt.Errorf("period end %s is before start %s", p.To.Format(time.DateOnly), p.From.Format(time.DateOnly))
	}
	return nil
}
