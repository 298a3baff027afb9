package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/agentdesk/internal/agentapi"
	"github.com/jask/agentdesk/internal/secrets"
)

type fakeAuth struct {
	keys []string
	resp agentapi.KeyResponse
	err  error

	// entered and release, when set, hold a call open until released
	entered chan struct{}
	release chan struct{}
}

func (f *fakeAuth) SetAPIKey(_ context.Context, key string) (agentapi.KeyResponse, error) {
	f.keys = append(f.keys, key)
	f.hold()
	return f.resp, f.err
}

func (f *fakeAuth) CheckAPIKey(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	f.hold()
	return f.err
}

func (f *fakeAuth) hold() {
	if f.release == nil {
		return
	}
	f.entered <- struct{}{}
	<-f.release
}

func newHeldAuth() *fakeAuth {
	return &fakeAuth{
		resp:    agentapi.KeyResponse{Message: "ok"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func newTestGate(auth *fakeAuth) (*Gate, *Cache) {
	cache := NewCache(NewMemoryStore(), secrets.NewSealerWithPassphrase("test"), "session-1")
	return NewGate(cache, auth, nil), cache
}

func TestSubmitCredentialScenario(t *testing.T) {
	auth := &fakeAuth{resp: agentapi.KeyResponse{Message: "ok"}}
	gate, cache := newTestGate(auth)
	require.Equal(t, StateUnset, gate.State())

	require.NoError(t, gate.Submit(context.Background(), "sk-test-123"))
	require.Equal(t, []string{"sk-test-123"}, auth.keys)
	require.True(t, gate.Confirmed())

	cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-test-123", cached)
}

func TestSubmitEmptyCredentialNeverReachesNetwork(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		auth := &fakeAuth{resp: agentapi.KeyResponse{Message: "ok"}}
		gate, cache := newTestGate(auth)

		err := gate.Submit(context.Background(), in)
		require.ErrorIs(t, err, ErrEmptyCredential)
		require.Empty(t, auth.keys)
		require.False(t, gate.Confirmed())

		cached, err := cache.Get(context.Background())
		require.NoError(t, err)
		require.Empty(t, cached)
	}
}

func TestSubmitTrimsCandidate(t *testing.T) {
	auth := &fakeAuth{resp: agentapi.KeyResponse{Message: "ok"}}
	gate, _ := newTestGate(auth)
	require.NoError(t, gate.Submit(context.Background(), "  sk-1 \n"))
	require.Equal(t, []string{"sk-1"}, auth.keys)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		auth     *fakeAuth
		rejected bool
	}{
		{
			name:     "non-2xx",
			auth:     &fakeAuth{err: &agentapi.APIError{StatusCode: http.StatusBadRequest, Message: "API key is required"}},
			rejected: true,
		},
		{
			name:     "2xx without message",
			auth:     &fakeAuth{resp: agentapi.KeyResponse{}},
			rejected: true,
		},
		{
			name: "transport",
			auth: &fakeAuth{err: errors.New("perform request: connection refused")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, cache := newTestGate(tt.auth)
			err := gate.Submit(context.Background(), "sk-x")
			require.Error(t, err)
			require.Equal(t, tt.rejected, errors.Is(err, ErrCredentialRejected))
			require.Equal(t, StateUnset, gate.State())

			// a rejected credential is not resent on the next page load
			cached, err := cache.Get(context.Background())
			require.NoError(t, err)
			if tt.rejected {
				require.Empty(t, cached)
			} else {
				require.Equal(t, "sk-x", cached)
			}
		})
	}
}

func TestVerifySendsCachedCredential(t *testing.T) {
	auth := &fakeAuth{resp: agentapi.KeyResponse{Message: "ok"}}
	gate, cache := newTestGate(auth)
	require.NoError(t, cache.Put(context.Background(), "sk-cached"))

	require.NoError(t, gate.Verify(context.Background()))
	require.Equal(t, []string{"sk-cached"}, auth.keys)
	require.True(t, gate.Confirmed())
}

func TestVerifyWithEmptyCacheSendsEmpty(t *testing.T) {
	auth := &fakeAuth{err: &agentapi.APIError{StatusCode: http.StatusBadRequest, Message: "API key is required"}}
	gate, _ := newTestGate(auth)

	require.Error(t, gate.Verify(context.Background()))
	require.Equal(t, []string{""}, auth.keys)
	require.Equal(t, StateUnset, gate.State())
}

func TestVerifyFailureAfterResetStaysUnset(t *testing.T) {
	auth := &fakeAuth{resp: agentapi.KeyResponse{Message: "ok"}}
	gate, _ := newTestGate(auth)
	require.NoError(t, gate.Submit(context.Background(), "sk-1"))
	require.True(t, gate.Confirmed())

	// next page load: the backend forgot us
	gate.Reset()
	auth.err = errors.New("perform request: EOF")
	require.Error(t, gate.Verify(context.Background()))
	require.False(t, gate.Confirmed())
}

func TestVerifyAcceptsPlainTextOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()
	client, err := agentapi.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	cache := NewCache(NewMemoryStore(), nil, "session-1")
	require.NoError(t, cache.Put(context.Background(), "sk-cached"))
	gate := NewGate(cache, client, nil)

	require.NoError(t, gate.Verify(context.Background()))
	require.True(t, gate.Confirmed())
}

func TestVerifyResultDroppedAfterReset(t *testing.T) {
	auth := newHeldAuth()
	gate, _ := newTestGate(auth)

	done := make(chan error, 1)
	go func() { done <- gate.Verify(context.Background()) }()
	<-auth.entered

	gate.Reset()
	close(auth.release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	require.Equal(t, StateUnset, gate.State())
}

func TestSubmitResultDroppedAfterReset(t *testing.T) {
	auth := newHeldAuth()
	gate, _ := newTestGate(auth)

	done := make(chan error, 1)
	go func() { done <- gate.Submit(context.Background(), "sk-1") }()
	<-auth.entered

	gate.Reset()
	close(auth.release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	require.False(t, gate.Confirmed())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "unset", StateUnset.String())
	require.Equal(t, "confirmed", StateConfirmed.String())
}
