package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/bissquit/incident-metrics/internal/reliability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	channel string
	err     error
	calls   int
	runID   uuid.UUID
}

func (m *mockSender) Channel() string { return m.channel }

func (m *mockSender) NotifyRecalculation(_ context.Context, result *reliability.Result) error {
	m.calls++
	m.runID = result.RunID
	return m.err
}

func TestDispatcher_FansOut(t *testing.T) {
	mm := &mockSender{channel: "mattermost"}
	mail := &mockSender{channel: "email"}
	d := NewDispatcher(mm, nil, mail)

	assert.Equal(t, 2, d.Len())

	result := &reliability.Result{RunID: uuid.New()}
	require.NoError(t, d.NotifyRecalculation(context.Background(), result))

	assert.Equal(t, 1, mm.calls)
	assert.Equal(t, 1, mail.calls)
	assert.Equal(t, result.RunID, mm.runID)
	assert.Equal(t, result.RunID, mail.runID)
}

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	sendErr := errors.New("webhook returned 500")
	mm := &mockSender{channel: "mattermost", err: sendErr}
	mail := &mockSender{channel: "email"}
	d := NewDispatcher(mm, mail)

	err := d.NotifyRecalculation(context.Background(), &reliability.Result{RunID: uuid.New()})

	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	assert.Contains(t, err.Error(), "mattermost")
	assert.Equal(t, 1, mail.calls)
}

func TestDispatcher_Empty(t *testing.T) {
	d := NewDispatcher()
	assert.Equal(t, 0, d.Len())
	assert.NoError(t, d.NotifyRecalculation(context.Background(), &reliability.Result{}))
}
