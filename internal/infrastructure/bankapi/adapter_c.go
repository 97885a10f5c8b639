package bankapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"bankledger/internal/domain/bank"
)

const actionC = "urn:bank-c/GetAccountActivity"

const successC = "SUCCESS"

var authCodesC = map[string]bool{"INVALID_CREDENTIALS": true, "USER_LOCKED": true, "UNAUTHORIZED": true}

type activityRequestC struct {
	XMLName    xml.Name `xml:"urn:bank-c GetAccountActivity"`
	Username   string   `xml:"Username"`
	Password   string   `xml:"Password"`
	AccountNo  string   `xml:"AccountNo"`
	BranchCode string   `xml:"BranchCode"`
	StartDate  string   `xml:"StartDate"`
	EndDate    string   `xml:"EndDate"`
}

type activityEnvelopeC struct {
	XMLName  xml.Name           `xml:"Envelope"`
	Fault    *soapFault         `xml:"Body>Fault"`
	Response *activityResponseC `xml:"Body>GetAccountActivityResponse"`
}

type activityResponseC struct {
	Status *struct {
		Code        string `xml:"Code"`
		Description string `xml:"Description"`
	} `xml:"Status"`
	Account struct {
		HolderName string      `xml:"HolderName"`
		IBAN       string      `xml:"IBAN"`
		Activities []activityC `xml:"Activities>Activity"`
	} `xml:"Account"`
}

type activityC struct {
	ID           string `xml:"Id"`
	DateTime     string `xml:"DateTime"`
	Amount       string `xml:"Amount"`
	DebitCredit  string `xml:"DebitCredit"`
	PayerName    string `xml:"PayerName"`
	PayeeName    string `xml:"PayeeName"`
	Description  string `xml:"Description"`
	BalanceAfter string `xml:"BalanceAfter"`
}

// AdapterC talks to the Variant C activity service.
type AdapterC struct {
	client *soapClient
}

// NewAdapterC creates a Variant C adapter posting to endpoint.
func NewAdapterC(endpoint string, opts Options) *AdapterC {
	return &AdapterC{client: newSOAPClient(bank.VariantC, endpoint, opts)}
}

func (a *AdapterC) Variant() bank.Variant { return bank.VariantC }

// Fetch requests the account activity of period.
func (a *AdapterC) Fetch(ctx context.Context, creds bank.Credentials, period bank.Period) ([]byte, error) {
	c, ok := creds.(bank.CredentialsC)
	if !ok {
		return nil, credentialsMismatch(bank.VariantC, creds)
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return a.client.call(ctx, actionC, activityRequestC{
		Username:   c.Username,
		Password:   c.Password,
		AccountNo:  c.AccountNo,
		BranchCode: c.BranchCode,
		StartDate:  period.From.Format(isoDateLayout),
		EndDate:    period.To.Format(isoDateLayout),
	})
}

// Parse extracts the statement from a GetAccountActivity response. The
// holder name is copied onto every movement so the normalizer can drop
// self-transfers.
func (a *AdapterC) Parse(body []byte) (*bank.Statement, error) {
	var env activityEnvelopeC
	if err := decodeEnvelope(bank.VariantC, body, &env, &env.Fault); err != nil {
		return nil, err
	}
	resp := env.Response
	if resp == nil {
		return nil, &bank.ParseError{Variant: bank.VariantC, Reason: "missing GetAccountActivityResponse"}
	}
	if resp.Status == nil {
		return nil, &bank.ParseError{Variant: bank.VariantC, Reason: "missing Status"}
	}

	switch code := strings.ToUpper(strings.TrimSpace(resp.Status.Code)); {
	case authCodesC[code]:
		return nil, &bank.AuthError{Variant: bank.VariantC, Code: code, Message: strings.TrimSpace(resp.Status.Description)}
	case code != successC:
		return nil, &bank.ParseError{Variant: bank.VariantC, Reason: fmt.Sprintf("bank status %s: %s", code, strings.TrimSpace(resp.Status.Description))}
	}

	holder := strings.TrimSpace(resp.Account.HolderName)
	st := &bank.Statement{IBAN: optionalIBAN(resp.Account.IBAN)}
	for i, act := range resp.Account.Activities {
		err := requireFields(bank.VariantC, i,
			[2]string{"Id", act.ID},
			[2]string{"DateTime", act.DateTime},
			[2]string{"Amount", act.Amount},
			[2]string{"DebitCredit", act.DebitCredit},
			[2]string{"BalanceAfter", act.BalanceAfter},
		)
		if err != nil {
			return nil, err
		}
		st.Transactions = append(st.Transactions, bank.RawC{
			ID:          strings.TrimSpace(act.ID),
			DateTime:    strings.TrimSpace(act.DateTime),
			Amount:      strings.TrimSpace(act.Amount),
			Indicator:   strings.TrimSpace(act.DebitCredit),
			PayerName:   act.PayerName,
			PayeeName:   act.PayeeName,
			Description: act.Description,
			Balance:     strings.TrimSpace(act.BalanceAfter),
			HolderName:  holder,
		})
	}
	return st, nil
}
