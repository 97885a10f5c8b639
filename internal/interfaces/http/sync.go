package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/banksync"
	"bankledger/internal/interfaces/scheduler"
)

// Enqueuer queues sync jobs. *scheduler.Scheduler implements it.
type Enqueuer interface {
	EnqueueAccount(accountID string) error
	EnqueueFleet() error
}

// Syncer runs a sync inline. *banksync.Orchestrator implements it.
type Syncer interface {
	SyncAll(ctx context.Context, trigger banksync.Trigger) (*banksync.Report, error)
	SyncAccount(ctx context.Context, accountID string) (*banksync.Report, error)
}

// RunLister reads the sync run log.
type RunLister interface {
	ListRecent(ctx context.Context, limit int) ([]*banksync.Report, error)
}

// SyncHandler exposes on-demand syncs and the run log.
type SyncHandler struct {
	enqueuer Enqueuer
	syncer   Syncer
	runs     RunLister
}

// NewSyncHandler creates a sync handler. enqueuer is nil when the
// scheduler is disabled; queued sync requests are then refused, while
// ?wait=true requests still run inline through syncer.
func NewSyncHandler(enqueuer Enqueuer, syncer Syncer, runs RunLister) *SyncHandler {
	return &SyncHandler{enqueuer: enqueuer, syncer: syncer, runs: runs}
}

type syncQueuedResponse struct {
	Status string `json:"status"`
	Target string `json:"target"`
}

// HandleSyncAll queues a sync of every active account. With ?wait=true
// the sync runs inline and the run report is returned.
func (h *SyncHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if wantsWait(r) {
		h.runInline(w, r, func(ctx context.Context) (*banksync.Report, error) {
			return h.syncer.SyncAll(ctx, banksync.TriggerOnDemand)
		})
		return
	}
	if h.enqueuer == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is disabled")
		return
	}
	h.respondQueued(w, "*", h.enqueuer.EnqueueFleet())
}

// HandleSyncAccount queues a sync of the account in the path. With
// ?wait=true the sync runs inline and the run report is returned.
func (h *SyncHandler) HandleSyncAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	accountID := r.PathValue("id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account ID is required")
		return
	}
	if wantsWait(r) {
		h.runInline(w, r, func(ctx context.Context) (*banksync.Report, error) {
			return h.syncer.SyncAccount(ctx, accountID)
		})
		return
	}
	if h.enqueuer == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler is disabled")
		return
	}
	h.respondQueued(w, accountID, h.enqueuer.EnqueueAccount(accountID))
}

func (h *SyncHandler) respondQueued(w http.ResponseWriter, target string, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, syncQueuedResponse{Status: "queued", Target: target})
	case errors.Is(err, scheduler.ErrDuplicateJob):
		writeJSON(w, http.StatusConflict, syncQueuedResponse{Status: "already-queued", Target: target})
	case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrPoolClosed):
		writeError(w, http.StatusServiceUnavailable, "sync queue unavailable")
	default:
		log.Printf("HTTP: failed to enqueue sync for %s: %v", target, err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue sync")
	}
}

func wantsWait(r *http.Request) bool {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return wait
}

func (h *SyncHandler) runInline(w http.ResponseWriter, r *http.Request, run func(ctx context.Context) (*banksync.Report, error)) {
	if h.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "inline sync unavailable")
		return
	}

	report, err := run(r.Context())
	switch {
	case errors.Is(err, account.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
		return
	case errors.Is(err, account.ErrAccountInactive):
		writeError(w, http.StatusConflict, "account is inactive")
		return
	case err != nil:
		log.Printf("HTTP: inline sync failed: %v", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(report))
}

type runResponse struct {
	*banksync.Report
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func newRunResponse(report *banksync.Report) runResponse {
	return runResponse{Report: report, Succeeded: report.Succeeded(), Failed: report.Failed()}
}

// HandleListRuns returns the latest runs, newest first.
func (h *SyncHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	reports, err := h.runs.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("HTTP: failed to list sync runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sync runs")
		return
	}

	response := make([]runResponse, 0, len(reports))
	for _, report := range reports {
		response = append(response, newRunResponse(report))
	}
	writeJSON(w, http.StatusOK, response)
}
