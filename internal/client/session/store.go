// Package session holds the single process-wide session: who is using this
// process and with what credential. State is exposed only through accessors
// so readers can never observe a torn identity/token pair.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/evolution-fly/flight-service/internal/client/gateway"
	"github.com/evolution-fly/flight-service/internal/domain"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// State is the three-valued session readiness. Loading is distinct from
// Anonymous: before Restore completes no authorization decision may treat
// the session as absent.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// persistedSession is the durable (identity, token) pair. The two fields are
// written and removed together, never one without the other.
type persistedSession struct {
	Identity domain.Identity `json:"identity"`
	Token    string          `json:"token"`
}

// Store is the process-wide session holder.
type Store struct {
	mu       sync.RWMutex
	state    State
	identity *domain.Identity
	token    string

	path   string
	gw     gateway.Gateway
	logger *zap.Logger
}

// NewStore creates a store in the loading state; call Restore before asking
// authorization questions.
func NewStore(path string, gw gateway.Gateway, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{state: StateLoading, path: path, gw: gw, logger: logger}
}

// Restore loads a previously persisted session, optimistically and without
// any network call: token validity is checked by the authority on the first
// gateway call, and a rejection tears the session down then (see Teardown).
func (s *Store) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("session file unreadable", zap.Error(err))
		}
		s.state = StateAnonymous
		return
	}

	var persisted persistedSession
	if err := json.Unmarshal(raw, &persisted); err != nil || !structurallyValid(persisted) {
		s.logger.Warn("discarding malformed session file")
		_ = os.Remove(s.path)
		s.state = StateAnonymous
		return
	}

	identity := persisted.Identity
	s.identity = &identity
	s.token = persisted.Token
	s.state = StateAuthenticated
}

// Login authenticates against the gateway. On success the session is
// replaced atomically and persisted; on failure the prior session stands and
// nothing is written.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	result, err := s.gw.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(result)
}

// Register creates an account. The password-confirmation equality check is
// local and synchronous: the cheapest failure path runs before any network.
func (s *Store) Register(ctx context.Context, profile gateway.Profile) (*domain.Identity, error) {
	if profile.Password != profile.PasswordConfirm {
		return nil, apperrors.NewValidationError("passwords do not match", nil)
	}
	result, err := s.gw.CreateAccount(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.adopt(result)
}

// Logout notifies the gateway best-effort and then unconditionally clears
// the session and its persisted copy. Logout never fails locally.
func (s *Store) Logout(ctx context.Context) {
	if err := s.gw.EndSession(ctx); err != nil {
		s.logger.Debug("gateway logout failed, clearing locally", zap.Error(err))
	}
	s.Teardown()
}

// Teardown clears the session without touching the gateway. It is also the
// forced-teardown path invoked when the authority rejects the credential.
func (s *Store) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.token = ""
	s.state = StateAnonymous
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove session file", zap.Error(err))
	}
}

// State returns the current readiness.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns a copy of the current identity, nil when not
// authenticated.
func (s *Store) Identity() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

// Token returns the current credential, empty when no session is active.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated derives from session state; it is never cached separately.
func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// RoleIs reports whether an authenticated session holds the given role.
func (s *Store) RoleIs(role domain.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated && s.identity != nil && s.identity.Role == role
}

// Role returns the active role; false when there is no authenticated session.
func (s *Store) Role() (domain.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated || s.identity == nil {
		return "", false
	}
	return s.identity.Role, true
}

func (s *Store) adopt(result *gateway.AuthResult) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity := result.Identity
	s.identity = &identity
	s.token = result.Token
	s.state = StateAuthenticated

	if err := s.persist(persistedSession{Identity: identity, Token: result.Token}); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
	out := identity
	return &out, nil
}

func (s *Store) persist(p persistedSession) error {
	encoded, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, encoded, 0o600)
}

func structurallyValid(p persistedSession) bool {
	return p.Token != "" && p.Identity.ID != "" && p.Identity.Role.Valid()
}
