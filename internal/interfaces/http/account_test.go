package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/transaction"
)

type MockAccountReader struct {
	GetAccountFunc func(ctx context.Context, accountID string) (*account.BankAccount, error)
}

func (m *MockAccountReader) GetAccount(ctx context.Context, accountID string) (*account.BankAccount, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, accountID)
	}
	return nil, account.ErrAccountNotFound
}

type MockTransactionReader struct {
	ListBetweenFunc     func(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error)
	ListByAccountIDFunc func(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error)
}

func (m *MockTransactionReader) ListBetween(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
	if m.ListBetweenFunc != nil {
		return m.ListBetweenFunc(ctx, accountID, from, to)
	}
	return nil, nil
}

func (m *MockTransactionReader) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	if m.ListByAccountIDFunc != nil {
		return m.ListByAccountIDFunc(ctx, accountID, limit, offset)
	}
	return nil, nil
}

func knownAccount(ctx context.Context, accountID string) (*account.BankAccount, error) {
	balance := decimal.RequireFromString("1250.75")
	return &account.BankAccount{ID: accountID, Variant: bank.VariantB, Name: "Operating", Currency: "TRY", LastBalance: &balance, Active: true}, nil
}

func newAccountMux(h *AccountHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/accounts/{id}", h.HandleAccountByID)
	mux.HandleFunc("/api/accounts/{id}/history", h.HandleHistory)
	return mux
}

func TestHandleAccountByID(t *testing.T) {
	tests := []struct {
		name       string
		getFunc    func(ctx context.Context, accountID string) (*account.BankAccount, error)
		wantStatus int
	}{
		{"found", knownAccount, http.StatusOK},
		{"not found", nil, http.StatusNotFound},
		{"repository error", func(ctx context.Context, accountID string) (*account.BankAccount, error) {
			return nil, errors.New("db down")
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHandler(&MockAccountReader{GetAccountFunc: tt.getFunc}, &MockTransactionReader{})

			rr := httptest.NewRecorder()
			newAccountMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				ID          string `json:"id"`
				Variant     string `json:"variant"`
				LastBalance string `json:"lastBalance"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.ID != "acc-1" || body.Variant != bank.VariantB.String() || body.LastBalance != "1250.75" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestHandleHistory(t *testing.T) {
	var gotFrom, gotTo time.Time
	reader := &MockTransactionReader{
		ListBetweenFunc: func(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
			gotFrom, gotTo = from, to
			return []*transaction.Transaction{
				{Timestamp: time.Date(2025, 11, 24, 10, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(100), BalanceAfter: decimal.NewFromInt(100)},
				{Timestamp: time.Date(2025, 11, 24, 16, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-40), BalanceAfter: decimal.NewFromInt(60)},
				{Timestamp: time.Date(2025, 11, 25, 9, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(15), BalanceAfter: decimal.NewFromInt(75)},
			}, nil
		},
	}
	h := NewAccountHandler(&MockAccountReader{GetAccountFunc: knownAccount}, reader)
	h.now = func() time.Time { return time.Date(2025, 11, 25, 18, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	newAccountMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1/history?days=3", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !gotFrom.Equal(time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", gotFrom)
	}
	if gotTo.Day() != 25 {
		t.Errorf("to = %v", gotTo)
	}

	var resp struct {
		From string `json:"from"`
		To   string `json:"to"`
		Days []struct {
			Balance   string `json:"balance"`
			Movements int    `json:"movements"`
		} `json:"days"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.From != "2025-11-23" || resp.To != "2025-11-25" {
		t.Errorf("window = %s..%s", resp.From, resp.To)
	}
	if len(resp.Days) != 2 {
		t.Fatalf("got %d days, want 2", len(resp.Days))
	}
	if resp.Days[0].Balance != "60" || resp.Days[0].Movements != 2 {
		t.Errorf("first day = %+v", resp.Days[0])
	}
	if resp.Days[1].Balance != "75" {
		t.Errorf("second day = %+v", resp.Days[1])
	}
}

func TestHandleHistory_EmptyIsArray(t *testing.T) {
	h := NewAccountHandler(&MockAccountReader{GetAccountFunc: knownAccount}, &MockTransactionReader{})

	rr := httptest.NewRecorder()
	newAccountMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1/history", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp["days"]) != "[]" {
		t.Errorf("days = %s, want []", resp["days"])
	}
}

func TestHandleHistory_BadRequests(t *testing.T) {
	called := false
	reader := &MockTransactionReader{
		ListBetweenFunc: func(ctx context.Context, accountID string, from, to time.Time) ([]*transaction.Transaction, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAccountHandler(&MockAccountReader{GetAccountFunc: knownAccount}, reader)

	for _, days := range []string{"0", "-1", "x", "400"} {
		rr := httptest.NewRecorder()
		newAccountMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/acc-1/history?days="+days, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("days=%s status = %d, want %d", days, rr.Code, http.StatusBadRequest)
		}
	}
	if called {
		t.Error("ledger was queried for an invalid request")
	}
}

func TestHandleHistory_UnknownAccount(t *testing.T) {
	h := NewAccountHandler(&MockAccountReader{}, &MockTransactionReader{})

	rr := httptest.NewRecorder()
	newAccountMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/accounts/nope/history", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
