package token

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrUnreadable marks a persisted token that exists but cannot be decoded or opened,
// for example after the store secret changed.
var ErrUnreadable = errors.New("persisted token is unreadable")

// Storage keys, one per client platform
const (
	WebKey    = "medapp_token"
	MobileKey = "MEDAPP_TOKEN"
)

// Store persists the session bearer token across process restarts.
// All operations are idempotent: Clear on an empty store is a no-op,
// and Load on an empty store returns "" with no error.
type Store interface {
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// NewBearer wraps a raw bearer token. The expiry is filled in when the
// token is a JWT carrying an exp claim.
func NewBearer(raw string) *oauth2.Token {
	t := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, err := Inspect(raw); err == nil && claims.ExpiresAt != nil {
		t.Expiry = *claims.ExpiresAt
	}
	return t
}

// StoreSource adapts a Store to an oauth2.TokenSource that reads the
// persisted token on every call. It returns a nil token when the store is empty.
func StoreSource(s Store) oauth2.TokenSource {
	return storeSource{store: s}
}

type storeSource struct {
	store Store
}

func (s storeSource) Token() (*oauth2.Token, error) {
	raw, err := s.store.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return NewBearer(raw), nil
}
