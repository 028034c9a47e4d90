package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
)

func newTestAuthService(t *testing.T) (*AuthService, *eventRecorder) {
	t.Helper()
	store, err := repository.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	bus := events.NewInProcBus()
	rec := &eventRecorder{}
	bus.Subscribe(rec.record)

	return NewAuthService(repository.NewUserRepository(store), bus, "test-secret", time.Hour), rec
}

func TestRegisterAndLogin(t *testing.T) {
	svc, rec := newTestAuthService(t)

	reg, err := svc.Register(context.Background(), "alice", "hunter22", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "Alice", reg.DisplayName)

	// Registration rides the change feed like any other write.
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.CollectionUsers, rec.events[0].Collection)
	assert.Equal(t, events.OpInsert, rec.events[0].Op)

	login, err := svc.Login(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	_, err = svc.Login(context.Background(), "alice", "wrong-password")
	assert.True(t, errors.Is(err, relay_errors.ErrNotAuthorized))

	_, err = svc.Login(context.Background(), "nobody", "hunter22")
	assert.True(t, errors.Is(err, relay_errors.ErrNotAuthorized))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "", "hunter22", "")
	assert.True(t, errors.Is(err, relay_errors.ErrInvalidInput))

	_, err = svc.Register(context.Background(), "alice", "short", "")
	assert.True(t, errors.Is(err, relay_errors.ErrInvalidInput))

	// Display name defaults to the username.
	reg, err := svc.Register(context.Background(), "bob", "hunter22", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", reg.DisplayName)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "alice", "hunter22", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other-pass", "")
	assert.True(t, errors.Is(err, relay_errors.ErrAlreadyExists))
}

func TestTokenRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t)

	reg, err := svc.Register(context.Background(), "alice", "hunter22", "Alice")
	require.NoError(t, err)

	claims, err := svc.ParseAccessToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, claims.UserID)
	assert.Equal(t, "Alice", claims.DisplayName)

	identity := svc.IdentityFromToken(reg.Token)
	require.NotNil(t, identity)
	assert.Equal(t, reg.UserID, identity.UserID)

	// Invalid tokens resolve to the unauthenticated path, not an error.
	assert.Nil(t, svc.IdentityFromToken(""))
	assert.Nil(t, svc.IdentityFromToken("not-a-token"))

	// A token minted under a different secret never verifies.
	other := NewAuthService(svc.userRepo, events.NewInProcBus(), "other-secret", time.Hour)
	assert.Nil(t, other.IdentityFromToken(reg.Token))
}
