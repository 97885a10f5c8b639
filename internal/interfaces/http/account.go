package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/transaction"
)

const maxHistoryDays = 366

// AccountReader is the read side of *account.Service used here.
type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (*account.BankAccount, error)
}

// AccountHandler serves account details and balance history.
type AccountHandler struct {
	accounts     AccountReader
	transactions transaction.Reader
	now          func() time.Time
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountReader, transactions transaction.Reader) *AccountHandler {
	return &AccountHandler{accounts: accounts, transactions: transactions, now: time.Now}
}

// HandleAccountByID returns the account with its cached balance.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	acc, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type historyResponse struct {
	AccountID string                     `json:"accountId"`
	From      string                     `json:"from"`
	To        string                     `json:"to"`
	Days      []transaction.DailyBalance `json:"days"`
}

// HandleHistory returns daily closing balances for the last ?days=N days.
func (h *AccountHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	acc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	from, to := transaction.HistoryWindow(h.now(), days)
	balances, err := transaction.History(r.Context(), h.transactions, acc.ID, from, to)
	if err != nil {
		log.Printf("HTTP: failed to build history for account %s: %v", acc.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to build history")
		return
	}
	if balances == nil {
		balances = []transaction.DailyBalance{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		AccountID: acc.ID,
		From:      from.Format(time.DateOnly),
		To:        to.Format(time.DateOnly),
		Days:      balances,
	})
}

func (h *AccountHandler) lookup(w http.ResponseWriter, r *http.Request) (*account.BankAccount, bool) {
	accountID := r.PathValue("id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account ID is required")
		return nil, false
	}

	acc, err := h.accounts.GetAccount(r.Context(), accountID)
	if errors.Is(err, account.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return nil, false
	}
	if err != nil {
		log.Printf("HTTP: failed to get account %s: %v", accountID, err)
		writeError(w, http.StatusInternalServerError, "failed to get account")
		return nil, false
	}
	return acc, true
}
