// Package session owns the credential gate: whether the backend currently
// accepts a credential for this session, and the session-scoped cache the
// credential lives in between page loads.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jask/agentdesk/internal/agentapi"
)

// CredentialState is unset until the backend accepts a credential.
type CredentialState int

const (
	StateUnset CredentialState = iota
	StateConfirmed
)

func (s CredentialState) String() string {
	if s == StateConfirmed {
		return "confirmed"
	}
	return "unset"
}

// WelcomeMessage is shown once a newly submitted credential is accepted.
const WelcomeMessage = "Welcome! You can now start giving me tasks."

var (
	ErrEmptyCredential    = errors.New("credential is empty")
	ErrCredentialRejected = errors.New("credential rejected")
	// ErrSuperseded means the page was reloaded while the call was in flight.
	ErrSuperseded = errors.New("credential result superseded by reload")
)

// Authorizer validates a credential with the backend. CheckAPIKey is the
// page-load resend, where only the status matters.
type Authorizer interface {
	SetAPIKey(ctx context.Context, key string) (agentapi.KeyResponse, error)
	CheckAPIKey(ctx context.Context, key string) error
}

// Gate tracks the credential state for the current page lifetime. Verify and
// Submit block on the network and are called from command goroutines, so the
// state is guarded. gen counts page lifetimes; a result that arrives after a
// Reset is discarded.
type Gate struct {
	cache  *Cache
	auth   Authorizer
	logger *slog.Logger

	mu    sync.Mutex
	state CredentialState
	gen   uint64
}

func NewGate(cache *Cache, auth Authorizer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cache: cache, auth: auth, logger: logger}
}

func (g *Gate) State() CredentialState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Confirmed is the guard every submission checks first.
func (g *Gate) Confirmed() bool {
	return g.State() == StateConfirmed
}

// Reset starts a new page lifetime: nothing is trusted until re-verified.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.gen++
	g.state = StateUnset
	g.mu.Unlock()
}

// Verify resends the cached credential, possibly empty. Any 2xx confirms;
// any failure leaves the gate unset and there is no retry.
func (g *Gate) Verify(ctx context.Context) error {
	gen := g.generation()
	cached, err := g.cache.Get(ctx)
	if err != nil {
		g.logger.Warn("credential cache unreadable", "error", err)
		cached = ""
	}
	if err := g.auth.CheckAPIKey(ctx, cached); err != nil {
		g.setIf(gen, StateUnset)
		g.logger.Info("credential check failed", "error", err, "had_cached", cached != "")
		return fmt.Errorf("verify credential: %w", err)
	}
	if !g.setIf(gen, StateConfirmed) {
		return ErrSuperseded
	}
	g.logger.Info("credential confirmed", "source", "cache")
	return nil
}

// Submit caches candidate and sends it. Success needs a 2xx that carries a
// message. A rejected candidate is dropped from the cache again.
func (g *Gate) Submit(ctx context.Context, candidate string) error {
	key := strings.TrimSpace(candidate)
	if key == "" {
		return ErrEmptyCredential
	}
	gen := g.generation()
	if err := g.cache.Put(ctx, key); err != nil {
		g.logger.Warn("credential not cached", "error", err)
	}

	resp, err := g.auth.SetAPIKey(ctx, key)
	var apiErr *agentapi.APIError
	switch {
	case errors.As(err, &apiErr):
		g.logger.Info("credential rejected", "status", apiErr.StatusCode, "message", apiErr.Message)
		g.forget(ctx)
		return fmt.Errorf("%w: %s", ErrCredentialRejected, apiErr.Message)
	case err != nil:
		g.logger.Info("credential submit failed", "error", err)
		return err
	case strings.TrimSpace(resp.Message) == "":
		g.forget(ctx)
		return ErrCredentialRejected
	}
	if !g.setIf(gen, StateConfirmed) {
		return ErrSuperseded
	}
	g.logger.Info("credential confirmed", "source", "prompt", "backend_session", resp.SessionID)
	return nil
}

func (g *Gate) forget(ctx context.Context) {
	if err := g.cache.Clear(ctx); err != nil {
		g.logger.Warn("rejected credential not cleared", "error", err)
	}
}

func (g *Gate) generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// setIf applies s only while the page lifetime that started the call is
// still current.
func (g *Gate) setIf(gen uint64, s CredentialState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		g.logger.Debug("stale credential result dropped", "state", s)
		return false
	}
	g.state = s
	return true
}
