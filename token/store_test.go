package token_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/token/storefake"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := token.NewFileStore(dir, token.WebKey)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "medapp_token.json"), fs.Path())

	t.Run("empty store loads nothing", func(t *testing.T) {
		tok, err := fs.Load(ctx)
		require.NoError(t, err)
		require.Empty(t, tok)
	})

	t.Run("clear on empty store is a no-op", func(t *testing.T) {
		require.NoError(t, fs.Clear(ctx))
		require.NoError(t, fs.Clear(ctx))
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "t1"))
		require.NoError(t, fs.Save(ctx, "t1"))

		tok, err := fs.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "t1", tok)

		info, err := os.Stat(fs.Path())
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("survives a new store instance", func(t *testing.T) {
		reopened, err := token.NewFileStore(dir, token.WebKey)
		require.NoError(t, err)
		tok, err := reopened.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "t1", tok)
	})

	t.Run("saving empty clears", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, ""))
		tok, err := fs.Load(ctx)
		require.NoError(t, err)
		require.Empty(t, tok)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, fs.Save(cctx, "t2"), context.Canceled)
	})
}

func TestFileStore_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	web, err := token.NewFileStore(dir, token.WebKey)
	require.NoError(t, err)
	mobile, err := token.NewFileStore(dir, token.MobileKey)
	require.NoError(t, err)

	require.NoError(t, web.Save(ctx, "web-token"))
	tok, err := mobile.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestSealedFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sealed, err := token.NewSealedFileStore(dir, token.MobileKey, "correct horse")
	require.NoError(t, err)
	require.NoError(t, sealed.Save(ctx, "secret-token"))

	raw, err := os.ReadFile(sealed.Path())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-token")

	tok, err := sealed.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "secret-token", tok)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := token.NewSealedFileStore(dir, token.MobileKey, "battery staple")
		require.NoError(t, err)
		_, err = other.Load(ctx)
		require.ErrorIs(t, err, token.ErrUnreadable)
	})

	t.Run("plain store cannot read sealed token", func(t *testing.T) {
		plain, err := token.NewFileStore(dir, token.MobileKey)
		require.NoError(t, err)
		_, err = plain.Load(ctx)
		require.ErrorIs(t, err, token.ErrUnreadable)
	})

	t.Run("corrupt file", func(t *testing.T) {
		corrupt, err := token.NewFileStore(t.TempDir(), token.MobileKey)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(corrupt.Path(), []byte("{garbage"), 0o600))
		_, err = corrupt.Load(ctx)
		require.ErrorIs(t, err, token.ErrUnreadable)
	})

	t.Run("secret required", func(t *testing.T) {
		_, err := token.NewSealedFileStore(dir, token.MobileKey, "")
		require.Error(t, err)
	})
}

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signed(t, jwtlib.MapClaims{
		"userId": 7,
		"role":   "doctor",
		"exp":    exp.Unix(),
		"iat":    time.Now().Unix(),
	})

	claims, err := token.Inspect(raw)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "doctor", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	require.True(t, claims.ExpiresAt.Equal(exp))
	require.False(t, claims.Expired(time.Now()))
	require.True(t, claims.Expired(exp.Add(time.Minute)))

	t.Run("opaque token", func(t *testing.T) {
		_, err := token.Inspect("t1")
		require.ErrorIs(t, err, token.ErrNotJWT)
	})

	t.Run("garbage with dots", func(t *testing.T) {
		_, err := token.Inspect(strings.Repeat("x.", 2) + "x")
		require.ErrorIs(t, err, token.ErrNotJWT)
	})
}

func TestStoreSource(t *testing.T) {
	store := storefake.NewMemoryStore("")
	src := token.StoreSource(store)

	tok, err := src.Token()
	require.NoError(t, err)
	require.Nil(t, tok)

	require.NoError(t, store.Save(context.Background(), "t1"))
	tok, err = src.Token()
	require.NoError(t, err)
	require.Equal(t, "t1", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
	require.True(t, tok.Expiry.IsZero())
}

func TestNewBearer_JWTExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	raw := signed(t, jwtlib.MapClaims{"userId": 1, "role": "patient", "exp": exp.Unix()})

	tok := token.NewBearer(raw)
	require.True(t, tok.Expiry.Equal(exp))
	require.True(t, tok.Valid())
}
