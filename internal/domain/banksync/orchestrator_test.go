package banksync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
	"bankledger/internal/domain/transaction"
	"bankledger/internal/domain/transaction/transactiontest"
)

// MockAccountSource is a mock implementation of AccountSource
type MockAccountSource struct {
	accounts map[string]*account.BankAccount
	creds    map[string]bank.Credentials

	mu    sync.Mutex
	ibans map[string]string
}

func newAccounts(accs ...*account.BankAccount) *MockAccountSource {
	m := &MockAccountSource{
		accounts: map[string]*account.BankAccount{},
		creds:    map[string]bank.Credentials{},
		ibans:    map[string]string{},
	}
	for _, a := range accs {
		m.accounts[a.ID] = a
		switch a.Variant {
		case bank.VariantA:
			m.creds[a.ID] = bank.CredentialsA{UserCode: "u", Password: "p", IBAN: "TR1"}
		case bank.VariantB:
			m.creds[a.ID] = bank.CredentialsB{CustomerNo: "c", UserCode: "u", Password: "p", AccountNo: "1"}
		case bank.VariantC:
			m.creds[a.ID] = bank.CredentialsC{Username: "u", Password: "p", AccountNo: "1", BranchCode: "9"}
		}
	}
	return m
}

func (m *MockAccountSource) GetAccount(ctx context.Context, id string) (*account.BankAccount, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, account.ErrAccountNotFound
}

func (m *MockAccountSource) ListActiveAccounts(ctx context.Context) ([]*account.BankAccount, error) {
	var out []*account.BankAccount
	for _, id := range []string{"acc-1", "acc-2", "acc-3"} {
		if a, ok := m.accounts[id]; ok && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAccountSource) LoadCredentials(ctx context.Context, id string) (bank.Credentials, error) {
	if c, ok := m.creds[id]; ok {
		return c, nil
	}
	return nil, account.ErrNoCredentials
}

func (m *MockAccountSource) RecordDiscoveredIBAN(ctx context.Context, id, iban string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ibans[id] = iban
	return true, nil
}

// fakeAdapter returns a two-movement statement unless told to fail.
type fakeAdapter struct {
	mu        sync.Mutex
	variant   bank.Variant
	fetchErr  func(creds bank.Credentials) error
	parseErr  error
	panicky   bool
	iban      *string
	lastRange bank.Period
	block     bool
}

func (f *fakeAdapter) Variant() bank.Variant { return f.variant }

func (f *fakeAdapter) Fetch(ctx context.Context, creds bank.Credentials, period bank.Period) ([]byte, error) {
	f.mu.Lock()
	f.lastRange = period
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fetchErr != nil {
		if err := f.fetchErr(creds); err != nil {
			return nil, err
		}
	}
	return []byte("body"), nil
}

func (f *fakeAdapter) Parse(body []byte) (*bank.Statement, error) {
	if f.panicky {
		panic("nil map")
	}
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return &bank.Statement{
		IBAN: f.iban,
		Transactions: []bank.RawTransaction{
			bank.RawC{ID: "m1", DateTime: "2025-11-20 10:00:00", Amount: "100", Indicator: "C", Balance: "100"},
			bank.RawC{ID: "m2", DateTime: "2025-11-21 10:00:00", Amount: "40", Indicator: "D", Balance: "60"},
		},
	}, nil
}

type recordingRecorder struct {
	reports []*Report
}

func (r *recordingRecorder) RecordRun(ctx context.Context, report *Report) error {
	r.reports = append(r.reports, report)
	return nil
}

func newTestOrchestrator(src AccountSource, store *transactiontest.MemStore, rec RunRecorder, adapters ...Adapter) *Orchestrator {
	cfg := Config{
		LookbackDays: 7,
		Concurrency:  3,
		CallTimeout:  50 * time.Millisecond,
		Now:          func() time.Time { return time.Date(2025, 11, 25, 15, 0, 0, 0, time.UTC) },
	}
	return NewOrchestrator(cfg, src, transaction.NewNormalizer(), transaction.NewReconciler(store), rec, adapters...)
}

func activeC(id string) *account.BankAccount {
	return &account.BankAccount{ID: id, Variant: bank.VariantC, Active: true}
}

func TestSyncAll_IsolatesFailingAccount(t *testing.T) {
	src := newAccounts(activeC("acc-1"), activeC("acc-2"), activeC("acc-3"))
	src.creds["acc-2"] = bank.CredentialsC{Username: "down", Password: "p", AccountNo: "1", BranchCode: "9"}
	adapter := &fakeAdapter{
		variant: bank.VariantC,
		fetchErr: func(creds bank.Credentials) error {
			if creds.(bank.CredentialsC).Username == "down" {
				return &bank.NetworkError{Variant: bank.VariantC, StatusCode: 503}
			}
			return nil
		},
	}
	store := transactiontest.NewMemStore()
	rec := &recordingRecorder{}

	report, err := newTestOrchestrator(src, store, rec, adapter).SyncAll(context.Background(), TriggerScheduled)
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())

	for _, id := range []string{"acc-1", "acc-3"} {
		res, ok := report.Result(id)
		require.True(t, ok)
		assert.Equal(t, StatusSucceeded, res.Status, id)
		assert.Equal(t, 2, res.Inserted)
		assert.Equal(t, 2, store.Count(id))
	}

	failed, _ := report.Result("acc-2")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, StageFetching, failed.Stage)
	assert.ErrorIs(t, failed.Err, bank.ErrNetwork)
	assert.Contains(t, failed.Reason, "HTTP 503")
	assert.Equal(t, 0, store.Count("acc-2"))

	require.Len(t, rec.reports, 1)
	assert.Equal(t, TriggerScheduled, rec.reports[0].Trigger)
	assert.NotEmpty(t, report.RunID)
}

func TestSyncAccount_StageOrderAndBalance(t *testing.T) {
	src := newAccounts(activeC("acc-1"))
	store := transactiontest.NewMemStore()
	adapter := &fakeAdapter{variant: bank.VariantC}

	report, err := newTestOrchestrator(src, store, nil, adapter).SyncAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, TriggerOnDemand, report.Trigger)
	assert.Equal(t, []Stage{StagePending, StageFetching, StageParsing, StageNormalizing, StageReconciling, StageSucceeded}, res.Trail)

	b, ok := store.Balance("acc-1")
	require.True(t, ok)
	assert.Equal(t, "60", b.Balance.String())

	assert.Equal(t, time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC), adapter.lastRange.From)
	assert.Equal(t, time.Date(2025, 11, 25, 0, 0, 0, 0, time.UTC), adapter.lastRange.To)
}

func TestSyncAccount_FetchWindowUsesBankTimeZone(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	src := newAccounts(activeC("acc-1"))
	adapter := &fakeAdapter{variant: bank.VariantC}
	o := NewOrchestrator(Config{
		LookbackDays: 7,
		Now:          func() time.Time { return time.Date(2025, 11, 25, 22, 30, 0, 0, time.UTC) },
		Location:     istanbul,
	}, src, transaction.NewNormalizer(), transaction.NewReconciler(transactiontest.NewMemStore()), nil, adapter)

	_, err := o.SyncAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 11, 19, 0, 0, 0, 0, istanbul), adapter.lastRange.From)
	assert.Equal(t, time.Date(2025, 11, 26, 0, 0, 0, 0, istanbul), adapter.lastRange.To)
}

func TestSyncAccount_RepeatedRunIsIdempotent(t *testing.T) {
	src := newAccounts(activeC("acc-1"))
	store := transactiontest.NewMemStore()
	o := newTestOrchestrator(src, store, nil, &fakeAdapter{variant: bank.VariantC})

	_, err := o.SyncAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	report, err := o.SyncAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Results[0].Inserted)
	assert.Equal(t, 2, report.Results[0].Skipped)
	assert.Equal(t, 2, store.Count("acc-1"))
}

func TestSyncAccount_Errors(t *testing.T) {
	inactive := activeC("acc-1")
	inactive.Active = false
	o := newTestOrchestrator(newAccounts(inactive), transactiontest.NewMemStore(), nil, &fakeAdapter{variant: bank.VariantC})

	_, err := o.SyncAccount(context.Background(), "acc-1")
	assert.ErrorIs(t, err, account.ErrAccountInactive)

	_, err = o.SyncAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestSyncAccount_FailureStages(t *testing.T) {
	tests := []struct {
		name      string
		adapter   *fakeAdapter
		noCreds   bool
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "missing credentials fail before fetching",
			adapter:   &fakeAdapter{variant: bank.VariantC},
			noCreds:   true,
			wantStage: StagePending,
			wantErr:   bank.ErrValidation,
		},
		{
			name:      "auth error while parsing",
			adapter:   &fakeAdapter{variant: bank.VariantC, parseErr: &bank.AuthError{Variant: bank.VariantC, Code: "INVALID_CREDENTIALS"}},
			wantStage: StageParsing,
			wantErr:   bank.ErrAuth,
		},
		{
			name:      "timeout is a network error",
			adapter:   &fakeAdapter{variant: bank.VariantC, block: true},
			wantStage: StageFetching,
			wantErr:   bank.ErrNetwork,
		},
		{
			name:      "panic is contained",
			adapter:   &fakeAdapter{variant: bank.VariantC, panicky: true},
			wantStage: StageParsing,
		},
		{
			name:      "no adapter for variant",
			adapter:   &fakeAdapter{variant: bank.VariantA},
			wantStage: StagePending,
			wantErr:   bank.ErrUnknownVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newAccounts(activeC("acc-1"))
			if tt.noCreds {
				delete(src.creds, "acc-1")
			}
			report, err := newTestOrchestrator(src, transactiontest.NewMemStore(), nil, tt.adapter).SyncAccount(context.Background(), "acc-1")
			require.NoError(t, err)

			res := report.Results[0]
			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, tt.wantStage, res.Stage)
			assert.NotEmpty(t, res.Reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Equal(t, StageFailed, res.Trail[len(res.Trail)-1])
		})
	}
}

func TestSyncAccount_RecordsDiscoveredIBAN(t *testing.T) {
	iban := "TR330006100519786457841326"
	src := newAccounts(activeC("acc-1"))
	o := newTestOrchestrator(src, transactiontest.NewMemStore(), nil, &fakeAdapter{variant: bank.VariantC, iban: &iban})

	_, err := o.SyncAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, iban, src.ibans["acc-1"])
}

func TestAttempt_RejectsOutOfOrderTransitions(t *testing.T) {
	a := newAttempt()
	require.NoError(t, a.advance(StageFetching))
	assert.Error(t, a.advance(StageNormalizing))
	assert.Error(t, a.advance(StageFetching))

	a.fail()
	assert.Equal(t, StageFetching, a.failedAt)
	assert.Error(t, a.advance(StageParsing))
	a.fail()
	assert.Equal(t, []Stage{StagePending, StageFetching, StageFailed}, a.trail)
}

func TestReport_Summary(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Report{
		RunID: "run-1", Trigger: TriggerScheduled, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []AccountResult{{Status: StatusSucceeded}, {Status: StatusFailed, Err: errors.New("x")}},
	}
	assert.Equal(t, "run=run-1 trigger=scheduled accounts=2 succeeded=1 failed=1 duration=1.5s", r.Summary())
}
