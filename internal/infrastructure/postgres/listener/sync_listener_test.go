package listener

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockEnqueuer struct {
	EnqueueAccountFunc func(accountID string) error
	EnqueueFleetFunc   func() error

	accounts []string
	fleets   int
}

func (m *MockEnqueuer) EnqueueAccount(accountID string) error {
	m.accounts = append(m.accounts, accountID)
	if m.EnqueueAccountFunc != nil {
		return m.EnqueueAccountFunc(accountID)
	}
	return nil
}

func (m *MockEnqueuer) EnqueueFleet() error {
	m.fleets++
	if m.EnqueueFleetFunc != nil {
		return m.EnqueueFleetFunc()
	}
	return nil
}

func TestHandlePayload_Routing(t *testing.T) {
	enq := &MockEnqueuer{}
	l := NewSyncListener("", enq, time.Minute)

	assert.True(t, l.handlePayload(" acc-1 "))
	assert.True(t, l.handlePayload("*"))
	assert.False(t, l.handlePayload("   "))

	assert.Equal(t, []string{"acc-1"}, enq.accounts)
	assert.Equal(t, 1, enq.fleets)
}

func TestHandlePayload_Debounce(t *testing.T) {
	enq := &MockEnqueuer{}
	l := NewSyncListener("", enq, 50*time.Millisecond)

	require.True(t, l.handlePayload("acc-1"))
	assert.False(t, l.handlePayload("acc-1"), "repeat inside the window is dropped")
	assert.True(t, l.handlePayload("acc-2"), "other accounts are independent")

	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.handlePayload("acc-1"), "window expired")

	assert.Equal(t, []string{"acc-1", "acc-2", "acc-1"}, enq.accounts)
}

func TestHandlePayload_EnqueueFailureAllowsRetry(t *testing.T) {
	fail := true
	enq := &MockEnqueuer{
		EnqueueAccountFunc: func(string) error {
			if fail {
				return errors.New("queue full")
			}
			return nil
		},
	}
	l := NewSyncListener("", enq, time.Minute)

	assert.False(t, l.handlePayload("acc-1"))
	fail = false
	assert.True(t, l.handlePayload("acc-1"))
}

type recordingExecer struct {
	query string
	args  []any
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	r.query = query
	r.args = args
	return nil, nil
}

func TestNotify(t *testing.T) {
	db := &recordingExecer{}

	require.NoError(t, Notify(context.Background(), db, " acc-9 "))
	assert.Equal(t, `SELECT request_bank_account_sync($1)`, db.query)
	assert.Equal(t, []any{"acc-9"}, db.args)

	assert.Error(t, Notify(context.Background(), db, ""))
}
