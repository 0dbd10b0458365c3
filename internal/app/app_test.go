package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-medapp/internal/app"
	"github.com/jrsteele09/go-medapp/internal/config"
	"github.com/jrsteele09/go-medapp/internal/fakebackend"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, b *fakebackend.Backend, secret string) config.Config {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("env: TEST\napi_url: %s\nupload_url: %s\ntoken_dir: %s\nstore_secret: %q\n",
		b.URL(), b.AssetURL(), filepath.Join(dir, "tokens"), secret)
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o600))
	cfg, err := config.New(file)
	require.NoError(t, err)
	return cfg
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	b := fakebackend.New(t)

	t.Run("plain", func(t *testing.T) {
		cfg := testConfig(t, b, "")
		store, err := app.NewStore(cfg, token.WebKey)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "header.payload.signature"))

		raw, err := os.ReadFile(store.(*token.FileStore).Path())
		require.NoError(t, err)
		require.Contains(t, string(raw), "header.payload.signature")
	})

	t.Run("sealed", func(t *testing.T) {
		cfg := testConfig(t, b, "correct horse")
		store, err := app.NewStore(cfg, token.MobileKey)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "header.payload.signature"))

		raw, err := os.ReadFile(store.(*token.FileStore).Path())
		require.NoError(t, err)
		require.NotContains(t, string(raw), "header.payload.signature")

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "header.payload.signature", got)
	})
}

func TestNew_PurgesCacheWhenTheUserChanges(t *testing.T) {
	ctx := context.Background()
	b := fakebackend.New(t)
	b.AddUser(users.User{FullName: "Greg House", Email: "house@example.com", Role: users.RoleDoctor}, "secret12")
	b.AddUser(users.User{FullName: "Pat Smith", Email: "pat@example.com", Role: users.RolePatient}, "secret12")

	cfg := testConfig(t, b, "")
	store, err := app.NewStore(cfg, token.WebKey)
	require.NoError(t, err)
	a, err := app.New(cfg, store, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Session.Restore(ctx))

	_, err = a.Session.Login(ctx, "pat@example.com", "secret12")
	require.NoError(t, err)
	_, err = a.Directory.Doctors(ctx)
	require.NoError(t, err)
	_, err = a.Appointments.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, a.Cache.Len())

	t.Run("profile refresh keeps the cache", func(t *testing.T) {
		require.NoError(t, a.Session.RefreshProfile(ctx))
		require.Equal(t, 2, a.Cache.Len())
	})

	a.Session.Logout(ctx)
	require.Zero(t, a.Cache.Len())

	t.Run("a restored session reuses the persisted token", func(t *testing.T) {
		_, err = a.Session.Login(ctx, "house@example.com", "secret12")
		require.NoError(t, err)

		again, err := app.New(cfg, store, zerolog.Nop())
		require.NoError(t, err)
		require.True(t, again.Session.Snapshot().Loading)
		require.NoError(t, again.Session.Restore(ctx))
		snap := again.Session.Snapshot()
		require.True(t, snap.Authenticated())
		require.Equal(t, users.RoleDoctor, snap.User.Role)
	})
}
