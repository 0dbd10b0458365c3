package symptoms_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-medapp/api"
	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/fakebackend"
	"github.com/jrsteele09/go-medapp/symptoms"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestService_Check(t *testing.T) {
	ctx := context.Background()
	b := fakebackend.New(t)
	pat := b.AddUser(users.User{FullName: "Pat", Email: "pat@example.com", Role: users.RolePatient}, "secret1")
	client, err := api.New(b.URL(), api.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: b.IssueToken(pat.ID, pat.Role),
	})))
	require.NoError(t, err)
	svc, err := symptoms.NewService(client)
	require.NoError(t, err)

	t.Run("likely", func(t *testing.T) {
		p, err := svc.Check(ctx, symptoms.Symptoms{Fever: true, Cough: true})
		require.NoError(t, err)
		require.True(t, p.Likely())
		require.Equal(t, 82, p.Percent())
	})

	t.Run("healthy", func(t *testing.T) {
		p, err := svc.Check(ctx, symptoms.Symptoms{})
		require.NoError(t, err)
		require.False(t, p.Likely())
		require.Equal(t, 90, p.Percent())
	})

	t.Run("model unavailable", func(t *testing.T) {
		b.Fail("POST /ml/symptoms", 502)
		defer b.Recover("POST /ml/symptoms")
		_, err := svc.Check(ctx, symptoms.Symptoms{Headache: true})
		require.ErrorIs(t, err, apperrors.ErrServer)
		require.Equal(t, 502, apperrors.StatusCode(err))
	})
}

func TestNewService(t *testing.T) {
	_, err := symptoms.NewService(nil)
	require.Error(t, err)
}
