package transaction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bankledger/internal/domain/bank"
)

const (
	dayFirstDate = "02/01/2006"
	isoDateTime  = "2006-01-02T15:04:05"
	sqlDateTime  = "2006-01-02 15:04:05"
)

// senderMarker introduces the counterparty in Variant A descriptions,
// e.g. "EFT sender: ACME LTD; ref 8812".
const senderMarker = "sender:"

// Normalizer turns raw bank movements into canonical transactions. It does
// no I/O.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// rawAudit is the envelope stored in Transaction.Raw.
type rawAudit struct {
	Kind    string            `json:"kind"`
	Variant bank.Variant      `json:"variant"`
	Fields  map[string]string `json:"fields"`
}

// NormalizeStatement normalizes every movement of st. A single bad movement
// fails the whole statement; no partial batch is returned.
func (n *Normalizer) NormalizeStatement(accountID string, st *bank.Statement) ([]*Transaction, error) {
	if st == nil {
		return nil, nil
	}
	out := make([]*Transaction, 0, len(st.Transactions))
	for _, raw := range st.Transactions {
		tx, err := n.Normalize(accountID, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Normalize converts one raw movement.
func (n *Normalizer) Normalize(accountID string, raw bank.RawTransaction) (*Transaction, error) {
	var (
		tx  *Transaction
		err error
	)
	switch r := raw.(type) {
	case bank.RawA:
		tx, err = normalizeA(r)
	case bank.RawB:
		tx, err = normalizeB(r)
	case bank.RawC:
		tx, err = normalizeC(r)
	default:
		return nil, fmt.Errorf("%w: unsupported raw transaction %T", bank.ErrUnknownVariant, raw)
	}
	if err != nil {
		return nil, &bank.ParseError{
			Variant: raw.Variant(),
			Reason:  fmt.Sprintf("movement %q", raw.Reference()),
			Err:     err,
		}
	}

	audit, err := json.Marshal(rawAudit{Kind: "bank_raw", Variant: raw.Variant(), Fields: raw.AuditFields()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw fields: %w", err)
	}

	tx.AccountID = accountID
	tx.Raw = audit
	tx.BankReferenceID = raw.Reference()
	if tx.BankReferenceID == "" {
		tx.BankReferenceID = synthesizeReference(tx)
	}
	return tx, nil
}

func normalizeA(r bank.RawA) (*Transaction, error) {
	var (
		ts  time.Time
		err error
	)
	if strings.TrimSpace(r.Timestamp) != "" {
		ts, err = parseISODateTime(r.Timestamp)
	} else {
		ts, err = combineDateTime(r.Date, "")
	}
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	balance, err := parseAmount(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	return &Transaction{
		Timestamp:    ts,
		Amount:       amount,
		Description:  strings.TrimSpace(r.Description),
		Counterparty: extractSender(r.Description),
		BalanceAfter: balance,
	}, nil
}

func normalizeB(r bank.RawB) (*Transaction, error) {
	ts, err := combineDateTime(r.Date, r.Time)
	if err != nil {
		return nil, err
	}
	// The sign character is the direction; parseAmount honours it and treats
	// an unsigned value as a credit.
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	balance, err := parseAmount(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	return &Transaction{
		Timestamp:    ts,
		Amount:       amount,
		Description:  strings.TrimSpace(r.Description),
		Counterparty: collapseSpaces(r.Counterparty),
		BalanceAfter: balance,
	}, nil
}

func normalizeC(r bank.RawC) (*Transaction, error) {
	ts, err := parseSQLDateTime(r.DateTime)
	if err != nil {
		return nil, err
	}

	magnitude, err := parseAmount(r.Amount)
	if err != nil {
		return nil, err
	}
	if magnitude.IsNegative() {
		return nil, fmt.Errorf("amount %q must be unsigned", r.Amount)
	}

	debit, err := isDebit(r.Indicator)
	if err != nil {
		return nil, err
	}
	amount := magnitude
	if debit {
		amount = magnitude.Neg()
	}

	balance, err := parseAmount(r.Balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	return &Transaction{
		Timestamp:    ts,
		Amount:       amount,
		Description:  strings.TrimSpace(r.Description),
		Counterparty: pickCounterparty(debit, r.PayerName, r.PayeeName, r.HolderName),
		BalanceAfter: balance,
	}, nil
}

func isDebit(indicator string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(indicator)) {
	case "D", "DEBIT":
		return true, nil
	case "C", "CREDIT":
		return false, nil
	}
	return false, fmt.Errorf("unknown debit/credit indicator %q", indicator)
}

// pickCounterparty prefers the payer on credits and the payee on debits,
// falls back to the other field, and never reports the holder themselves.
func pickCounterparty(debit bool, payer, payee, holder string) string {
	candidates := []string{payer, payee}
	if debit {
		candidates = []string{payee, payer}
	}
	for _, c := range candidates {
		c = collapseSpaces(c)
		if c == "" || sameName(c, holder) {
			continue
		}
		return c
	}
	return ""
}

var turkishUpper = cases.Upper(language.Turkish)

func sameName(a, b string) bool {
	a, b = collapseSpaces(a), collapseSpaces(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b) || turkishUpper.String(a) == turkishUpper.String(b)
}

func extractSender(description string) string {
	idx := indexFold(description, senderMarker)
	if idx < 0 {
		return ""
	}
	rest := description[idx+len(senderMarker):]
	if end := strings.IndexAny(rest, ";|\n"); end >= 0 {
		rest = rest[:end]
	}
	return collapseSpaces(rest)
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
// Offsets refer to s itself, so multi-byte runes before the match are safe.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// combineDateTime joins a DD/MM/YYYY date with an optional HH:MM[:SS] time.
// A missing time means midnight.
func combineDateTime(date, clock string) (time.Time, error) {
	d, err := time.Parse(dayFirstDate, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return d, nil
	}

	var c time.Time
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if c, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}

// parseISODateTime accepts ISO 8601 with or without fractional seconds or an
// offset. Any offset is dropped: the wall clock is kept as the bank sent it.
func parseISODateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{isoDateTime, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return wallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseSQLDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{sqlDateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", s)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func synthesizeReference(tx *Transaction) string {
	return tx.Timestamp.Format(isoDateTime) + "|" + tx.Amount.StringFixed(2) + "|" + tx.BalanceAfter.StringFixed(2)
}
