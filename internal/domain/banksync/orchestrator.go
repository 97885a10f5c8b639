package banksync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/transaction"
)

var (
	syncTracer        = otel.Tracer("bankledger/sync")
	syncMeter         = otel.Meter("bankledger/sync")
	syncAccountTotal  metric.Int64Counter
	syncAccountTiming metric.Float64Histogram
)

func init() {
	var err error
	syncAccountTotal, err = syncMeter.Int64Counter("sync.account.total",
		metric.WithDescription("Account sync attempts by outcome"))
	if err != nil {
		log.Printf("Sync: failed to create counter: %v", err)
	}
	syncAccountTiming, err = syncMeter.Float64Histogram("sync.account.duration",
		metric.WithDescription("Account sync attempt duration"),
		metric.WithUnit("s"))
	if err != nil {
		log.Printf("Sync: failed to create histogram: %v", err)
	}
}

// AccountSource is the account side of a sync. *account.Service implements it.
type AccountSource interface {
	GetAccount(ctx context.Context, accountID string) (*account.BankAccount, error)
	ListActiveAccounts(ctx context.Context) ([]*account.BankAccount, error)
	LoadCredentials(ctx context.Context, accountID string) (bank.Credentials, error)
	RecordDiscoveredIBAN(ctx context.Context, accountID, iban string) (bool, error)
}

// Adapter talks to one bank. Fetch performs the call and returns the raw
// body; Parse turns a body into a statement or a *bank.ParseError /
// *bank.AuthError, never both data and an error.
type Adapter interface {
	Variant() bank.Variant
	Fetch(ctx context.Context, creds bank.Credentials, period bank.Period) ([]byte, error)
	Parse(body []byte) (*bank.Statement, error)
}

// Normalizer converts a parsed statement to canonical candidates.
type Normalizer interface {
	NormalizeStatement(accountID string, st *bank.Statement) ([]*transaction.Transaction, error)
}

// Reconciler merges candidates into the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, accountID string, batch []*transaction.Transaction) (*transaction.Result, error)
}

// RunRecorder persists finished run reports.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Config tunes the orchestrator.
type Config struct {
	// LookbackDays is how many days before today each fetch covers.
	LookbackDays int
	// Concurrency bounds how many accounts sync at once.
	Concurrency int
	// CallTimeout bounds each bank call.
	CallTimeout time.Duration
	// Now returns the current instant. Defaults to time.Now.
	Now func() time.Time
	// Location is the banks' time zone. The fetch window's "today" is taken
	// in it. Nil keeps the location Now returns.
	Location *time.Location
}

// Orchestrator drives Adapter, Normalizer and Reconciler per account and
// isolates failures between accounts.
type Orchestrator struct {
	cfg        Config
	accounts   AccountSource
	adapters   map[bank.Variant]Adapter
	normalizer Normalizer
	reconciler Reconciler
	recorder   RunRecorder
}

// NewOrchestrator creates an orchestrator. recorder may be nil.
func NewOrchestrator(cfg Config, accounts AccountSource, normalizer Normalizer, reconciler Reconciler, recorder RunRecorder, adapters ...Adapter) *Orchestrator {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	byVariant := make(map[bank.Variant]Adapter, len(adapters))
	for _, a := range adapters {
		byVariant[a.Variant()] = a
	}

	return &Orchestrator{
		cfg:        cfg,
		accounts:   accounts,
		adapters:   byVariant,
		normalizer: normalizer,
		reconciler: reconciler,
		recorder:   recorder,
	}
}

// SyncAccount runs an on-demand sync of one account. It only returns an
// error when the account cannot be synced at all (unknown or inactive);
// every pipeline failure is reported in the returned report.
func (o *Orchestrator) SyncAccount(ctx context.Context, accountID string) (*Report, error) {
	acc, err := o.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, account.ErrAccountInactive
	}
	return o.run(ctx, TriggerOnDemand, []*account.BankAccount{acc}), nil
}

// SyncAll syncs every active account.
func (o *Orchestrator) SyncAll(ctx context.Context, trigger Trigger) (*Report, error) {
	accounts, err := o.accounts.ListActiveAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	return o.run(ctx, trigger, accounts), nil
}

func (o *Orchestrator) run(ctx context.Context, trigger Trigger, accounts []*account.BankAccount) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
		Results:   make([]AccountResult, len(accounts)),
	}

	// Attempts never return an error to the group; a failure stays in its slot.
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, acc := range accounts {
		g.Go(func() error {
			report.Results[i] = o.syncOne(ctx, acc)
			return nil
		})
	}
	_ = g.Wait()
	report.FinishedAt = time.Now()

	log.Printf("Sync: %s", report.Summary())
	for _, res := range report.Results {
		if res.Status == StatusFailed {
			log.Printf("Sync: run=%s account=%s variant=%s stage=%s kind=%s reason=%s",
				report.RunID, res.AccountID, res.Variant, res.Stage, bank.Kind(res.Err), res.Reason)
		}
	}

	if o.recorder != nil {
		if err := o.recorder.RecordRun(context.WithoutCancel(ctx), report); err != nil {
			log.Printf("Sync: failed to record run %s: %v", report.RunID, err)
		}
	}
	return report
}

// syncOne runs the pipeline for one account. It never panics and never
// returns an error: the outcome is the result.
func (o *Orchestrator) syncOne(ctx context.Context, acc *account.BankAccount) (res AccountResult) {
	start := time.Now()
	ctx, span := syncTracer.Start(ctx, "sync.account", trace.WithAttributes(
		attribute.String("account.id", acc.ID),
		attribute.String("bank.variant", acc.Variant.String()),
	))
	a := newAttempt()
	res = AccountResult{AccountID: acc.ID, Variant: acc.Variant}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Sync: recovered panic for account %s: %v", acc.ID, r)
			res = o.failed(res, a, fmt.Errorf("internal error: %v", r))
		}
		res.Duration = time.Since(start)
		res.Trail = a.trail
		o.observe(ctx, span, res)
	}()

	adapter, ok := o.adapters[acc.Variant]
	if !ok {
		return o.failed(res, a, fmt.Errorf("%w: no adapter for %s", bank.ErrUnknownVariant, acc.Variant))
	}

	creds, err := o.accounts.LoadCredentials(ctx, acc.ID)
	if err != nil {
		if errors.Is(err, account.ErrNoCredentials) {
			schema, _ := bank.Schema(acc.Variant)
			missing := make([]string, len(schema))
			for i, f := range schema {
				missing[i] = f.Name
			}
			err = &bank.ValidationError{Variant: acc.Variant, Missing: missing}
		}
		return o.failed(res, a, err)
	}

	if err := a.advance(StageFetching); err != nil {
		return o.failed(res, a, err)
	}
	body, err := o.fetch(ctx, adapter, creds)
	if err != nil {
		return o.failed(res, a, err)
	}

	if err := a.advance(StageParsing); err != nil {
		return o.failed(res, a, err)
	}
	st, err := adapter.Parse(body)
	if err != nil {
		return o.failed(res, a, err)
	}
	res.Fetched = len(st.Transactions)
	if st.IBAN != nil {
		if _, err := o.accounts.RecordDiscoveredIBAN(ctx, acc.ID, *st.IBAN); err != nil {
			log.Printf("Sync: account %s: failed to record IBAN: %v", acc.ID, err)
		}
	}

	if err := a.advance(StageNormalizing); err != nil {
		return o.failed(res, a, err)
	}
	batch, err := o.normalizer.NormalizeStatement(acc.ID, st)
	if err != nil {
		return o.failed(res, a, err)
	}

	if err := a.advance(StageReconciling); err != nil {
		return o.failed(res, a, err)
	}
	rec, err := o.reconciler.Reconcile(ctx, acc.ID, batch)
	if err != nil {
		return o.failed(res, a, err)
	}
	res.Inserted, res.Skipped = rec.Inserted, rec.Skipped

	if err := a.advance(StageSucceeded); err != nil {
		return o.failed(res, a, err)
	}
	res.Status = StatusSucceeded
	res.Stage = StageSucceeded
	return res
}

// fetch bounds the bank call. A deadline hit is always a network error.
func (o *Orchestrator) fetch(ctx context.Context, adapter Adapter, creds bank.Credentials) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	period := bank.LastDays(o.bankNow(), o.cfg.LookbackDays)
	body, err := adapter.Fetch(callCtx, creds, period)
	if err != nil && !errors.Is(err, bank.ErrNetwork) && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &bank.NetworkError{Variant: adapter.Variant(), Err: callCtx.Err()}
	}
	return body, err
}

func (o *Orchestrator) bankNow() time.Time {
	now := o.cfg.Now()
	if o.cfg.Location != nil {
		now = now.In(o.cfg.Location)
	}
	return now
}

func (o *Orchestrator) failed(res AccountResult, a *attempt, err error) AccountResult {
	a.fail()
	res.Status = StatusFailed
	res.Stage = a.failedAt
	res.Err = err
	res.Reason = err.Error()
	return res
}

func (o *Orchestrator) observe(ctx context.Context, span trace.Span, res AccountResult) {
	defer span.End()
	attrs := metric.WithAttributes(
		attribute.String("status", string(res.Status)),
		attribute.String("variant", res.Variant.String()),
	)
	if syncAccountTotal != nil {
		syncAccountTotal.Add(ctx, 1, attrs)
	}
	if syncAccountTiming != nil {
		syncAccountTiming.Record(ctx, res.Duration.Seconds(), attrs)
	}

	span.SetAttributes(
		attribute.String("sync.status", string(res.Status)),
		attribute.Int("sync.fetched", res.Fetched),
		attribute.Int("sync.inserted", res.Inserted),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Reason)
	}
}
