package main

import (
	"net/http"

	httphandlers "bankledger/internal/interfaces/http"
	"bankledger/internal/interfaces/scheduler"
	"bankledger/internal/shared/middleware"
	"bankledger/internal/shared/telemetry"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
// sched is nil when the scheduler is disabled.
func SetupRoutes(deps *Dependencies, sched *scheduler.Scheduler) http.Handler {
	mux := http.NewServeMux()

	var enqueuer httphandlers.Enqueuer
	if sched != nil {
		enqueuer = sched
	}

	health := httphandlers.NewHealthHandler(deps.DB)
	syncHandler := httphandlers.NewSyncHandler(enqueuer, deps.Orchestrator, deps.Runs)
	accountHandler := httphandlers.NewAccountHandler(deps.Accounts, deps.Transactions)

	// Operational
	mux.HandleFunc("/health", health.HandleHealth)
	mux.Handle("/metrics", telemetry.MetricsHandler())

	// Sync triggers and run log
	mux.HandleFunc("/api/sync", syncHandler.HandleSyncAll)
	mux.HandleFunc("/api/sync/runs", syncHandler.HandleListRuns)
	mux.HandleFunc("/api/sync/{id}", syncHandler.HandleSyncAccount)

	// Accounts
	mux.HandleFunc("/api/accounts/{id}", accountHandler.HandleAccountByID)
	mux.HandleFunc("/api/accounts/{id}/history", accountHandler.HandleHistory)

	handler := middleware.Telemetry("bankledger-syncd", "/health", "/metrics")(mux)
	return middleware.Logging("/health", "/metrics")(handler)
}
