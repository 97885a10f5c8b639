package bankapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"bankledger/internal/domain/bank"
)

const actionA = "urn:bank-a:statement/GetAccountMovements"

// Result codes Variant A uses for rejected logins.
var authCodesA = map[string]bool{"101": true, "102": true, "103": true}

type movementsRequestA struct {
	XMLName   xml.Name `xml:"urn:bank-a:statement GetAccountMovements"`
	UserCode  string   `xml:"UserCode"`
	Password  string   `xml:"Password"`
	IBAN      string   `xml:"IBAN"`
	StartDate string   `xml:"StartDate"`
	EndDate   string   `xml:"EndDate"`
}

type movementsEnvelopeA struct {
	XMLName  xml.Name            `xml:"Envelope"`
	Fault    *soapFault          `xml:"Body>Fault"`
	Response *movementsResponseA `xml:"Body>GetAccountMovementsResponse"`
}

type movementsResponseA struct {
	Result struct {
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Result"`
	IBAN      string      `xml:"IBAN"`
	Movements []movementA `xml:"Movements>Movement"`
}

type movementA struct {
	TransactionDate string `xml:"TransactionDate"`
	Timestamp       string `xml:"Timestamp"`
	Amount          string `xml:"Amount"`
	Description     string `xml:"Description"`
	Balance         string `xml:"Balance"`
}

// AdapterA talks to the Variant A statement service.
type AdapterA struct {
	client *soapClient
}

// NewAdapterA creates a Variant A adapter posting to endpoint.
func NewAdapterA(endpoint string, opts Options) *AdapterA {
	return &AdapterA{client: newSOAPClient(bank.VariantA, endpoint, opts)}
}

func (a *AdapterA) Variant() bank.Variant { return bank.VariantA }

// Fetch requests the movements of period.
func (a *AdapterA) Fetch(ctx context.Context, creds bank.Credentials, period bank.Period) ([]byte, error) {
	c, ok := creds.(bank.CredentialsA)
	if !ok {
		return nil, credentialsMismatch(bank.VariantA, creds)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return a.client.call(ctx, actionA, movementsRequestA{
		UserCode:  c.UserCode,
		Password:  c.Password,
		IBAN:      c.IBAN,
		StartDate: period.From.Format(dayFirstLayout),
		EndDate:   period.To.Format(dayFirstLayout),
	})
}

// Parse extracts the statement from a GetAccountMovements response.
func (a *AdapterA) Parse(body []byte) (*bank.Statement, error) {
	var env movementsEnvelopeA
	if err := decodeEnvelope(bank.VariantA, body, &env, &env.Fault); err != nil {
		return nil, err
	}
	resp := env.Response
	if resp == nil {
		return nil, &bank.ParseError{Variant: bank.VariantA, Reason: "missing GetAccountMovementsResponse"}
	}

	switch code := strings.TrimSpace(resp.Result.Code); {
	case code == "":
		return nil, &bank.ParseError{Variant: bank.VariantA, Reason: "missing result code"}
	case authCodesA[code]:
		return nil, &bank.AuthError{Variant: bank.VariantA, Code: code, Message: strings.TrimSpace(resp.Result.Message)}
	case code != "0":
		return nil, &bank.ParseError{Variant: bank.VariantA, Reason: fmt.Sprintf("bank error %s: %s", code, strings.TrimSpace(resp.Result.Message))}
	}

	st := &bank.Statement{IBAN: optionalIBAN(resp.IBAN)}
	for i, m := range resp.Movements {
		if strings.TrimSpace(m.TransactionDate) == "" && strings.TrimSpace(m.Timestamp) == "" {
			return nil, &bank.ParseError{Variant: bank.VariantA, Reason: fmt.Sprintf("row %d: missing TransactionDate", i)}
		}
		if err := requireFields(bank.VariantA, i, [2]string{"Amount", m.Amount}, [2]string{"Balance", m.Balance}); err != nil {
			return nil, err
		}
		st.Transactions = append(st.Transactions, bank.RawA{
			ReferenceID: referenceA(m),
			Date:        strings.TrimSpace(m.TransactionDate),
			Timestamp:   strings.TrimSpace(m.Timestamp),
			Amount:      strings.TrimSpace(m.Amount),
			Description: m.Description,
			Balance:     strings.TrimSpace(m.Balance),
		})
	}
	return st, nil
}

// referenceA builds the key Variant A does not supply: exact timestamp plus
// amount. Without a timestamp the normalizer synthesizes one that also
// includes the balance.
func referenceA(m movementA) string {
	ts := strings.TrimSpace(m.Timestamp)
	if ts == "" {
		return ""
	}
	return ts + "|" + strings.TrimSpace(m.Amount)
}
