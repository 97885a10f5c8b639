package banksync

import (
	"fmt"
	"time"

	"bankledger/internal/domain/bank"
)

// Trigger says what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerOnDemand  Trigger = "on-demand"
)

// Status is the outcome of one account's attempt.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// AccountResult is one line of a run report.
type AccountResult struct {
	AccountID string       `json:"accountId"`
	Variant   bank.Variant `json:"variant"`
	Status    Status       `json:"status"`
	// Stage is the stage a failed attempt stopped in; StageSucceeded otherwise.
	Stage    Stage         `json:"stage"`
	Err      error         `json:"-"`
	Reason   string        `json:"reason,omitempty"`
	Fetched  int           `json:"fetched"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Trail    []Stage       `json:"-"`
}

// Report aggregates every account attempt of one run.
type Report struct {
	RunID      string          `json:"runId"`
	Trigger    Trigger         `json:"trigger"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Results    []AccountResult `json:"results"`
}

// Succeeded counts successful attempts.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed counts failed attempts.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Result returns the entry for accountID.
func (r *Report) Result(accountID string) (AccountResult, bool) {
	for _, res := range r.Results {
		if res.AccountID == accountID {
			return res, true
		}
	}
	return AccountResult{}, false
}

// Summary is the single log line written per run.
func (r *Report) Summary() string {
	return fmt.Sprintf("run=%s trigger=%s accounts=%d succeeded=%d failed=%d duration=%s",
		r.RunID, r.Trigger, len(r.Results), r.Succeeded(), r.Failed(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
