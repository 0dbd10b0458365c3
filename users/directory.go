package users

import (
	"context"
	"net/url"
	"slices"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/querycache"
)

const (
	doctorsKey  = "users:doctors"
	patientsKey = "users:patients"
)

// Getter is the subset of api.Client the Directory needs
type Getter interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Directory lists the doctors and patients known to the backend
type Directory struct {
	client Getter
	cache  *querycache.Cache
}

// NewDirectory creates a Directory. cache may be nil.
func NewDirectory(client Getter, cache *querycache.Cache) (*Directory, error) {
	if client == nil {
		return nil, apperrors.New("[users.NewDirectory] client is required")
	}
	return &Directory{client: client, cache: cache}, nil
}

// Doctors lists doctor accounts with their profiles, for booking
func (d *Directory) Doctors(ctx context.Context) ([]User, error) {
	return d.list(ctx, doctorsKey, "/users/doctors")
}

// Patients lists patient accounts
func (d *Directory) Patients(ctx context.Context) ([]User, error) {
	return d.list(ctx, patientsKey, "/users/patients")
}

func (d *Directory) list(ctx context.Context, key, path string) ([]User, error) {
	list, err := querycache.Fetch(ctx, d.cache, key, func(ctx context.Context) ([]User, error) {
		var out []User
		if err := d.client.Get(ctx, path, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[users.Directory] GET %s", path)
	}
	return slices.Clone(list), nil
}
