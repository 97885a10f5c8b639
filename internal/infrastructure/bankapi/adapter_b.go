package bankapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"bankledger/internal/domain/bank"
)

const actionB = "http://bank-b.example/services/GetStatement"

var authCodesB = map[string]bool{"11": true, "12": true, "13": true}

type statementRequestB struct {
	XMLName    xml.Name `xml:"http://bank-b.example/services GetStatement"`
	CustomerNo string   `xml:"CustomerNo"`
	UserCode   string   `xml:"UserCode"`
	Password   string   `xml:"Password"`
	AccountNo  string   `xml:"AccountNo"`
	BeginDate  string   `xml:"BeginDate"`
	EndDate    string   `xml:"EndDate"`
}

type statementEnvelopeB struct {
	XMLName xml.Name          `xml:"Envelope"`
	Fault   *soapFault        `xml:"Body>Fault"`
	Result  *statementResultB `xml:"Body>GetStatementResponse>GetStatementResult"`
}

type statementResultB struct {
	ErrorCode    string         `xml:"ErrorCode"`
	ErrorMessage string         `xml:"ErrorMessage"`
	IBAN         string         `xml:"IBAN"`
	Transactions []transactionB `xml:"Transactions>Transaction"`
}

type transactionB struct {
	ReferenceNo      string `xml:"ReferenceNo"`
	Date             string `xml:"Date"`
	Time             string `xml:"Time"`
	Amount           string `xml:"Amount"`
	Balance          string `xml:"Balance"`
	Description      string `xml:"Description"`
	CounterpartyName string `xml:"CounterpartyName"`
}

// AdapterB talks to the Variant B statement service.
type AdapterB struct {
	client *soapClient
}

// NewAdapterB creates a Variant B adapter posting to endpoint.
func NewAdapterB(endpoint string, opts Options) *AdapterB {
	return &AdapterB{client: newSOAPClient(bank.VariantB, endpoint, opts)}
}

func (a *AdapterB) Variant() bank.Variant { return bank.VariantB }

// Fetch requests the statement of period.
func (a *AdapterB) Fetch(ctx context.Context, creds bank.Credentials, period bank.Period) ([]byte, error) {
	c, ok := creds.(bank.CredentialsB)
	if !ok {
		return nil, credentialsMismatch(bank.VariantB, creds)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return a.client.call(ctx, actionB, statementRequestB{
		CustomerNo: c.CustomerNo,
		UserCode:   c.UserCode,
		Password:   c.Password,
		AccountNo:  c.AccountNo,
		BeginDate:  period.From.Format(dayFirstLayout),
		EndDate:    period.To.Format(dayFirstLayout),
	})
}

// Parse extracts the statement from a GetStatement response.
func (a *AdapterB) Parse(body []byte) (*bank.Statement, error) {
	var env statementEnvelopeB
	if err := decodeEnvelope(bank.VariantB, body, &env, &env.Fault); err != nil {
		return nil, err
	}
	res := env.Result
	if res == nil {
		return nil, &bank.ParseError{Variant: bank.VariantB, Reason: "missing GetStatementResult"}
	}

	switch code := strings.TrimSpace(res.ErrorCode); {
	case authCodesB[code]:
		return nil, &bank.AuthError{Variant: bank.VariantB, Code: code, Message: strings.TrimSpace(res.ErrorMessage)}
	case code != "" && code != "0":
		return nil, &bank.ParseError{Variant: bank.VariantB, Reason: fmt.Sprintf("bank error %s: %s", code, strings.TrimSpace(res.ErrorMessage))}
	}

	st := &bank.Statement{IBAN: optionalIBAN(res.IBAN)}
	for i, t := range res.Transactions {
		err := requireFields(bank.VariantB, i,
			[2]string{"ReferenceNo", t.ReferenceNo},
			[2]string{"Date", t.Date},
			[2]string{"Amount", t.Amount},
			[2]string{"Balance", t.Balance},
		)
		if err != nil {
			return nil, err
		}
		st.Transactions = append(st.Transactions, bank.RawB{
			ReferenceNo:  strings.TrimSpace(t.ReferenceNo),
			Date:         strings.TrimSpace(t.Date),
			Time:         strings.TrimSpace(t.Time),
			Amount:       strings.TrimSpace(t.Amount),
			Balance:      strings.TrimSpace(t.Balance),
			Description:  t.Description,
			Counterparty: t.CounterpartyName,
		})
	}
	return st, nil
}
