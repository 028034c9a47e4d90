package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-chat/internal/domain/presence"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
)

func newTestTypingService(t *testing.T) (*TypingService, *eventRecorder) {
	t.Helper()
	store, err := repository.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewInProcBus()
	rec := &eventRecorder{}
	bus.Subscribe(rec.record)

	return NewTypingService(repository.NewTypingRepository(store), bus), rec
}

func TestTypingSetAndRefresh(t *testing.T) {
	svc, rec := newTestTypingService(t)

	require.NoError(t, svc.Set(context.Background(), "alice", ""))
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.OpInsert, rec.events[0].Op)
	firstID := rec.events[0].ID

	// A refresh replaces the record outright: delete of the old, insert of
	// a fresh one, never two live records for the same author.
	require.NoError(t, svc.Set(context.Background(), "alice", ""))
	require.Len(t, rec.events, 3)
	assert.Equal(t, events.OpDelete, rec.events[1].Op)
	assert.Equal(t, firstID, rec.events[1].ID)
	assert.Equal(t, events.OpInsert, rec.events[2].Op)
	assert.NotEqual(t, firstID, rec.events[2].ID)

	live, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "alice", live[0].Username)
}

func TestTypingSetValidation(t *testing.T) {
	svc, _ := newTestTypingService(t)
	err := svc.Set(context.Background(), "   ", "")
	assert.True(t, errors.Is(err, relay_errors.ErrInvalidInput))
}

func TestTypingClear(t *testing.T) {
	svc, rec := newTestTypingService(t)

	require.NoError(t, svc.Set(context.Background(), "alice", ""))
	require.NoError(t, svc.Clear(context.Background(), "alice"))

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, events.OpDelete, last.Op)

	live, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, live)

	// Clearing an absent record is a safe no-op.
	published := len(rec.events)
	require.NoError(t, svc.Clear(context.Background(), "alice"))
	assert.Equal(t, published, len(rec.events))
}

func TestTypingExpiryIsLazy(t *testing.T) {
	svc, rec := newTestTypingService(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	require.NoError(t, svc.Set(context.Background(), "alice", ""))
	require.NoError(t, svc.Set(context.Background(), "bob", ""))

	// Within the TTL both records are live.
	svc.now = func() time.Time { return start.Add(presence.TTL) }
	live, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, live, 2)

	// alice refreshes; bob goes quiet. Past the TTL only bob expires, and
	// the sweep happens on the read, publishing his removal.
	svc.now = func() time.Time { return start.Add(4 * time.Second) }
	require.NoError(t, svc.Set(context.Background(), "alice", ""))

	svc.now = func() time.Time { return start.Add(presence.TTL + 3*time.Second) }
	live, err = svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "alice", live[0].Username)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, events.OpDelete, last.Op)
	require.NotNil(t, last.Before)
	assert.Equal(t, "bob", last.Before.(*presence.TypingIndicator).Username)
}

func TestTypingListScoped(t *testing.T) {
	svc, _ := newTestTypingService(t)

	require.NoError(t, svc.Set(context.Background(), "alice", "room-a"))
	require.NoError(t, svc.Set(context.Background(), "bob", "room-b"))

	scoped, err := svc.List(context.Background(), "room-a")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "alice", scoped[0].Username)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
