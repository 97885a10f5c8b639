package account

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/domain/bank"
)

var (
	// Common ISO 4217 currency codes
	validCurrencies = map[string]struct{}{
		"TRY": {}, "USD": {}, "EUR": {}, "GBP": {}, "CHF": {},
		"JPY": {}, "CAD": {}, "AUD": {}, "SAR": {}, "AED": {},
		"RUB": {}, "CNY": {}, "SEK": {}, "NOK": {}, "DKK": {},
	}
)

// Domain errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")
	ErrNoCredentials   = errors.New("account has no stored credentials")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidCurrency = errors.New("valid ISO 4217 currency is required")
)

// DefaultCurrency is applied when an account is created without one.
const DefaultCurrency = "TRY"

// BankAccount is an account held at one of the supported banks. Credentials
// are never part of it; HasCredentials only says whether a blob is stored.
type BankAccount struct {
	ID                string           `json:"id"`
	InstitutionID     string           `json:"institutionId"`
	Variant           bank.Variant     `json:"variant"`
	Name              string           `json:"name"`
	AccountNumber     string           `json:"accountNumber"`
	IBAN              string           `json:"iban"`
	Currency          string           `json:"currency"`
	LastBalance       *decimal.Decimal `json:"lastBalance"`       // nil until the first transaction is stored
	LastBalanceUpdate *time.Time       `json:"lastBalanceUpdate"` // timestamp of the transaction behind LastBalance
	Active            bool             `json:"active"`
	HasCredentials    bool             `json:"hasCredentials"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// CreateParams contains parameters for registering a bank account
type CreateParams struct {
	InstitutionID string
	Variant       bank.Variant
	Name          string
	AccountNumber string
	IBAN          string
	Currency      string
}

// Validate validates the create parameters
func (p *CreateParams) Validate() error {
	if strings.TrimSpace(p.InstitutionID) == "" {
		return errors.Join(ErrInvalidInput, errors.New("institution ID is required"))
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.Join(ErrInvalidInput, errors.New("name is required"))
	}
	if !p.Variant.Valid() {
		return bank.ErrUnknownVariant
	}
	if !IsValidCurrency(p.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

// IsValidCurrency reports whether code is a known ISO 4217 code
func IsValidCurrency(code string) bool {
	_, ok := validCurrencies[code]
	return ok
}

// NormalizeIBAN strips spaces and upper-cases an IBAN.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.Join(strings.Fields(iban), ""))
}
