// Package app wires a client session and the resource services from configuration.
package app

import (
	"sync"

	"github.com/jrsteele09/go-medapp/api"
	"github.com/jrsteele09/go-medapp/appointments"
	"github.com/jrsteele09/go-medapp/auth"
	"github.com/jrsteele09/go-medapp/internal/config"
	"github.com/jrsteele09/go-medapp/internal/querycache"
	"github.com/jrsteele09/go-medapp/patients"
	"github.com/jrsteele09/go-medapp/symptoms"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/jrsteele09/go-medapp/videos"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// App is one signed in (or signed out) client
type App struct {
	Client  *api.Client
	Store   token.Store
	Cache   *querycache.Cache
	Session *auth.Manager

	Appointments *appointments.Service
	Directory    *users.Directory
	Patients     *patients.Service
	Videos       *videos.Service
	Symptoms     *symptoms.Service
}

// NewStore opens the token store for storageKey, sealed when the config carries a secret.
func NewStore(cfg config.ClientConfig, storageKey string) (token.Store, error) {
	var (
		store *token.FileStore
		err   error
	)
	if secret := cfg.GetStoreSecret(); secret != "" {
		store, err = token.NewSealedFileStore(cfg.GetTokenDir(), storageKey, secret)
	} else {
		store, err = token.NewFileStore(cfg.GetTokenDir(), storageKey)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[app.NewStore]")
	}
	return store, nil
}

// New builds an App over store. The session is left Loading when a token was
// persisted; callers finish start up with Session.Restore.
func New(cfg config.Config, store token.Store, logger zerolog.Logger, options ...api.Option) (*App, error) {
	clientOptions := []api.Option{
		api.WithAssetBaseURL(cfg.GetUploadURL()),
		api.WithTimeout(cfg.GetHTTPTimeout()),
		api.WithUserAgent(cfg.GetAppName()),
	}
	client, err := api.New(cfg.GetAPIURL(), append(clientOptions, options...)...)
	if err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}

	a := &App{Client: client, Store: store, Cache: querycache.New()}

	a.Session, err = auth.NewManager(client, store,
		auth.WithLogger(logger.With().Str("component", "session").Logger()),
		auth.WithOnChange(purgeOnUserChange(a.Cache)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}

	if a.Appointments, err = appointments.NewService(client, appointments.WithCache(a.Cache)); err != nil {
		return nil, err
	}
	if a.Directory, err = users.NewDirectory(client, a.Cache); err != nil {
		return nil, err
	}
	if a.Patients, err = patients.NewService(client, a.Cache); err != nil {
		return nil, err
	}
	if a.Videos, err = videos.NewService(client, a.Cache); err != nil {
		return nil, err
	}
	if a.Symptoms, err = symptoms.NewService(client); err != nil {
		return nil, err
	}
	return a, nil
}

// purgeOnUserChange drops every cached query whenever the signed in user changes,
// so nothing fetched for one account is served to the next.
func purgeOnUserChange(cache *querycache.Cache) func(auth.Snapshot) {
	var mu sync.Mutex
	var current uint
	return func(snap auth.Snapshot) {
		var id uint
		if snap.User != nil {
			id = snap.User.ID
		}
		mu.Lock()
		defer mu.Unlock()
		if id != current {
			cache.Purge()
			current = id
		}
	}
}
