// Package auth owns the client side session: the bearer token, the signed in
// user and whether an auth operation is in flight.
package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend endpoints used by the Manager
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	MePath       = "/auth/me"
)

// Client is the request issuer the Manager talks to the backend through.
// NewManager installs the Manager as the client's token source.
type Client interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	UseTokenSource(source oauth2.TokenSource)
}

// State of a session
type State int

const (
	Unauthenticated State = iota
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is an immutable copy of the session
type Snapshot struct {
	Token   string      // Bearer token, "" when signed out
	User    *users.User // Signed in user, nil until the profile is known
	Loading bool        // An auth operation is in flight
	State   State
}

// Authenticated reports whether a user is signed in and nothing is loading
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated
}

// SnapshotSource is anything that can report the current session
type SnapshotSource interface {
	Snapshot() Snapshot
}

// Manager is the single owner of session state and the only writer of the token store.
// It is safe for concurrent use; no lock is held while a request is in flight.
type Manager struct {
	client   Client
	store    token.Store
	logger   zerolog.Logger
	onChange func(Snapshot)

	mu         sync.Mutex
	token      string
	user       *users.User
	restoring  bool   // set from construction until Restore returns
	inflight   int    // login, register and refresh calls in progress
	generation uint64 // bumped by every explicit user action

	storeMu sync.Mutex // serialises writes to store
}

var (
	_ oauth2.TokenSource = (*Manager)(nil)
	_ SnapshotSource     = (*Manager)(nil)
)

// ManagerOption defines a function type to modify the Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger session transitions are written to
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithOnChange registers fn to receive a Snapshot after every state change.
// fn is called without the Manager's lock held.
func WithOnChange(fn func(Snapshot)) ManagerOption {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates a Manager and loads any persisted token.
// The session starts Loading when a token was found, Unauthenticated otherwise.
// A token the store cannot read is cleared and treated as no session.
func NewManager(client Client, store token.Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		client: client,
		store:  store,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}

	tok, err := store.Load(context.Background())
	switch {
	case errors.Is(err, token.ErrUnreadable):
		m.logger.Warn().Err(err).Msg("discarding unreadable persisted token")
		m.clearStore(context.Background(), m.generation)
		tok = ""
	case err != nil:
		return nil, errors.Wrap(err, "[NewManager] loading persisted token")
	}
	m.token = tok
	m.restoring = tok != ""

	client.UseTokenSource(m)
	return m, nil
}

// Restore completes start up: a persisted token is checked by refreshing the profile.
// The initial Loading state ends when Restore returns.
func (m *Manager) Restore(ctx context.Context) error {
	defer func() {
		m.mu.Lock()
		m.restoring = false
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
	}()

	err := m.RefreshProfile(ctx)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// Login signs in with email and password. On failure the session is unchanged
// and the returned error matches ErrAuth.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.User, error) {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := creds.Validate(); err != nil {
		return nil, failure(apperrors.ErrAuth, "Login", err)
	}

	gen := m.beginAction()
	var resp authResponse
	err := m.client.Post(ctx, LoginPath, creds, &resp)
	user, err := m.establish(gen, resp, err)
	if err != nil {
		if !errors.Is(err, ErrSuperseded) {
			err = failure(apperrors.ErrAuth, "Login", err)
		}
		m.logger.Warn().Err(err).Str("email", creds.Email).Msg("login failed")
		return nil, err
	}

	m.logger.Info().Uint("userId", user.ID).Str("role", user.Role.String()).Msg("signed in")
	return user, nil
}

// Register creates an account and signs it in. On failure the session is unchanged
// and the returned error matches ErrValidation.
func (m *Manager) Register(ctx context.Context, payload RegisterPayload) (*users.User, error) {
	payload.Email = strings.TrimSpace(payload.Email)
	if err := payload.Validate(); err != nil {
		return nil, failure(apperrors.ErrValidation, "Register", err)
	}

	gen := m.beginAction()
	var resp authResponse
	err := m.client.Post(ctx, RegisterPath, payload, &resp)
	user, err := m.establish(gen, resp, err)
	if err != nil {
		if !errors.Is(err, ErrSuperseded) {
			err = failure(apperrors.ErrValidation, "Register", err)
		}
		m.logger.Warn().Err(err).Str("email", payload.Email).Msg("registration failed")
		return nil, err
	}

	m.logger.Info().Uint("userId", user.ID).Str("role", user.Role.String()).Msg("registered")
	return user, nil
}

// Logout clears the session and the token store. Store failures are logged, never returned.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.token = ""
	m.user = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.clearStore(ctx, gen)
	m.logger.Info().Msg("signed out")
	m.notify(snap)
}

// RefreshProfile re-fetches the signed in user. Without a token it does nothing.
// Any failure is treated as an implicit logout and the cause is returned.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return nil
	}
	gen := m.generation
	m.inflight++
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)

	var resp meResponse
	err := m.client.Get(ctx, MePath, nil, &resp)
	if err == nil && resp.User == nil {
		err = ErrNoUser
	}

	m.mu.Lock()
	m.inflight--
	if gen != m.generation {
		snap = m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		m.logger.Debug().Msg("discarding stale profile refresh")
		return errors.Wrap(ErrSuperseded, "[Manager.RefreshProfile]")
	}
	if err != nil {
		m.generation++
		gen = m.generation
		m.token = ""
		m.user = nil
		snap = m.snapshotLocked()
		m.mu.Unlock()

		m.clearStore(ctx, gen)
		m.logger.Warn().Err(err).Msg("profile refresh failed, signing out")
		m.notify(snap)
		return errors.Wrap(err, "[Manager.RefreshProfile]")
	}
	m.user = resp.User.Clone()
	snap = m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Token implements oauth2.TokenSource over the in-memory token.
// It returns a nil token when signed out.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	raw := m.token
	m.mu.Unlock()

	if raw == "" {
		return nil, nil
	}
	return token.NewBearer(raw), nil
}

// beginAction records an explicit user action and marks the session as loading
func (m *Manager) beginAction() uint64 {
	m.mu.Lock()
	m.generation++
	m.inflight++
	gen := m.generation
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return gen
}

// establish applies a login or register response if no newer action happened since gen.
func (m *Manager) establish(gen uint64, resp authResponse, callErr error) (*users.User, error) {
	err := callErr
	if err == nil && (resp.Token == "" || resp.User == nil) {
		err = errors.Wrap(apperrors.ErrServer, "response carried no token or user")
	}

	m.mu.Lock()
	m.inflight--
	switch {
	case gen != m.generation:
		err = errors.WithStack(ErrSuperseded)
	case err == nil:
		m.token = resp.Token
		m.user = resp.User.Clone()
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err == nil {
		m.persist(gen, resp.Token)
	}
	m.notify(snap)
	if err != nil {
		return nil, err
	}
	return resp.User.Clone(), nil
}

// persist saves tok unless the session it belongs to has already been replaced
func (m *Manager) persist(gen uint64, tok string) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	current := gen == m.generation
	m.mu.Unlock()
	if !current {
		return
	}
	if err := m.store.Save(context.Background(), tok); err != nil {
		m.logger.Error().Err(err).Msg("persisting token")
	}
}

// clearStore empties the store unless a newer action has taken over since gen
func (m *Manager) clearStore(ctx context.Context, gen uint64) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.Lock()
	current := gen == m.generation
	m.mu.Unlock()
	if !current {
		return
	}
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error().Err(err).Msg("clearing persisted token")
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:   m.token,
		User:    m.user.Clone(),
		Loading: m.restoring || m.inflight > 0,
	}
	switch {
	case snap.Loading:
		snap.State = Loading
	case snap.User != nil:
		snap.State = Authenticated
	default:
		snap.State = Unauthenticated
	}
	return snap
}

func (m *Manager) notify(snap Snapshot) {
	if m.onChange != nil {
		m.onChange(snap)
	}
}
