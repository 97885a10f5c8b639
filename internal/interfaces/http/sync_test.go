package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/banksync"
	"bankledger/internal/interfaces/scheduler"
)

type MockEnqueuer struct {
	EnqueueAccountFunc func(accountID string) error
	EnqueueFleetFunc   func() error
}

func (m *MockEnqueuer) EnqueueAccount(accountID string) error {
	if m.EnqueueAccountFunc != nil {
		return m.EnqueueAccountFunc(accountID)
	}
	return nil
}

func (m *MockEnqueuer) EnqueueFleet() error {
	if m.EnqueueFleetFunc != nil {
		return m.EnqueueFleetFunc()
	}
	return nil
}

type MockSyncer struct {
	SyncAllFunc     func(ctx context.Context, trigger banksync.Trigger) (*banksync.Report, error)
	SyncAccountFunc func(ctx context.Context, accountID string) (*banksync.Report, error)
}

func (m *MockSyncer) SyncAll(ctx context.Context, trigger banksync.Trigger) (*banksync.Report, error) {
	if m.SyncAllFunc != nil {
		return m.SyncAllFunc(ctx, trigger)
	}
	return &banksync.Report{}, nil
}

func (m *MockSyncer) SyncAccount(ctx context.Context, accountID string) (*banksync.Report, error) {
	if m.SyncAccountFunc != nil {
		return m.SyncAccountFunc(ctx, accountID)
	}
	return &banksync.Report{}, nil
}

type MockRunLister struct {
	ListRecentFunc func(ctx context.Context, limit int) ([]*banksync.Report, error)
}

func (m *MockRunLister) ListRecent(ctx context.Context, limit int) ([]*banksync.Report, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	return nil, nil
}

func newSyncMux(h *SyncHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync", h.HandleSyncAll)
	mux.HandleFunc("/api/sync/runs", h.HandleListRuns)
	mux.HandleFunc("/api/sync/{id}", h.HandleSyncAccount)
	return mux
}

func TestHandleSyncAccount(t *testing.T) {
	tests := []struct {
		name       string
		enqueueErr error
		wantStatus int
	}{
		{"queued", nil, http.StatusAccepted},
		{"already queued", fmt.Errorf("account:acc-1: %w", scheduler.ErrDuplicateJob), http.StatusConflict},
		{"queue full", scheduler.ErrQueueFull, http.StatusServiceUnavailable},
		{"shutting down", scheduler.ErrPoolClosed, http.StatusServiceUnavailable},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := NewSyncHandler(&MockEnqueuer{
				EnqueueAccountFunc: func(accountID string) error {
					got = accountID
					return tt.enqueueErr
				},
			}, nil, &MockRunLister{})

			rr := httptest.NewRecorder()
			newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync/acc-1", nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got != "acc-1" {
				t.Errorf("enqueued %q, want acc-1", got)
			}
		})
	}
}

func TestHandleSyncAll(t *testing.T) {
	calls := 0
	h := NewSyncHandler(&MockEnqueuer{
		EnqueueFleetFunc: func() error {
			calls++
			return nil
		},
	}, nil, &MockRunLister{})

	rr := httptest.NewRecorder()
	newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusAccepted)
	}
	if calls != 1 {
		t.Errorf("EnqueueFleet called %d times", calls)
	}

	var resp syncQueuedResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Target != "*" || resp.Status != "queued" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleSync_MethodNotAllowed(t *testing.T) {
	h := NewSyncHandler(&MockEnqueuer{}, nil, &MockRunLister{})

	for _, path := range []string{"/api/sync", "/api/sync/acc-1"} {
		rr := httptest.NewRecorder()
		newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestHandleSync_SchedulerDisabled(t *testing.T) {
	h := NewSyncHandler(nil, nil, &MockRunLister{})

	rr := httptest.NewRecorder()
	newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleListRuns(t *testing.T) {
	started := time.Date(2025, 11, 25, 9, 0, 0, 0, time.UTC)
	var gotLimit int
	h := NewSyncHandler(nil, nil, &MockRunLister{
		ListRecentFunc: func(ctx context.Context, limit int) ([]*banksync.Report, error) {
			gotLimit = limit
			return []*banksync.Report{{
				RunID:      "run-1",
				Trigger:    banksync.TriggerScheduled,
				StartedAt:  started,
				FinishedAt: started.Add(time.Minute),
				Results: []banksync.AccountResult{
					{AccountID: "a", Status: banksync.StatusSucceeded, Stage: banksync.StageSucceeded},
					{AccountID: "b", Status: banksync.StatusFailed, Stage: banksync.StageFetching, Reason: "timeout"},
				},
			}}, nil
		},
	})

	rr := httptest.NewRecorder()
	newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/runs?limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}

	var runs []struct {
		RunID     string `json:"runId"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
		Results   []struct {
			Stage  string `json:"stage"`
			Reason string `json:"reason"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Succeeded != 1 || runs[0].Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d", runs[0].Succeeded, runs[0].Failed)
	}
	if runs[0].Results[1].Stage != banksync.StageFetching.String() || runs[0].Results[1].Reason != "timeout" {
		t.Errorf("unexpected failed result %+v", runs[0].Results[1])
	}
}

func TestHandleListRuns_InvalidLimit(t *testing.T) {
	h := NewSyncHandler(nil, nil, &MockRunLister{})

	for _, limit := range []string{"0", "abc", "1000"} {
		rr := httptest.NewRecorder()
		newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sync/runs?limit="+limit, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want %d", limit, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleSyncAccount_Wait(t *testing.T) {
	tests := []struct {
		name       string
		syncErr    error
		wantStatus int
	}{
		{"report returned", nil, http.StatusOK},
		{"unknown account", account.ErrAccountNotFound, http.StatusNotFound},
		{"inactive account", account.ErrAccountInactive, http.StatusConflict},
		{"listing failed", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enqueued := false
			h := NewSyncHandler(&MockEnqueuer{
				EnqueueAccountFunc: func(accountID string) error {
					enqueued = true
					return nil
				},
			}, &MockSyncer{
				SyncAccountFunc: func(ctx context.Context, accountID string) (*banksync.Report, error) {
					if tt.syncErr != nil {
						return nil, tt.syncErr
					}
					return &banksync.Report{
						RunID:   "run-2",
						Trigger: banksync.TriggerOnDemand,
						Results: []banksync.AccountResult{{
							AccountID: accountID,
							Status:    banksync.StatusFailed,
							Stage:     banksync.StageFetching,
							Reason:    "bank_a: network error: connection refused",
						}},
					}, nil
				},
			}, &MockRunLister{})

			rr := httptest.NewRecorder()
			newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync/acc-9?wait=true", nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if enqueued {
				t.Error("inline sync must not enqueue")
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Failed  int `json:"failed"`
				Results []struct {
					AccountID string `json:"accountId"`
					Status    string `json:"status"`
					Reason    string `json:"reason"`
				} `json:"results"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Failed != 1 || len(resp.Results) != 1 {
				t.Fatalf("unexpected response %+v", resp)
			}
			if resp.Results[0].AccountID != "acc-9" || resp.Results[0].Reason == "" {
				t.Errorf("unexpected result %+v", resp.Results[0])
			}
		})
	}
}

func TestHandleSyncAll_WaitWithoutSyncer(t *testing.T) {
	h := NewSyncHandler(&MockEnqueuer{}, nil, &MockRunLister{})

	rr := httptest.NewRecorder()
	newSyncMux(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync?wait=1", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
