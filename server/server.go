// Package server is the portal: a small HTTP front end that holds one
// client session and exposes it, gated by role, to a browser or script.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-medapp/appointments"
	"github.com/jrsteele09/go-medapp/auth"
	"github.com/jrsteele09/go-medapp/internal/config"
	"github.com/jrsteele09/go-medapp/patients"
	"github.com/jrsteele09/go-medapp/symptoms"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/jrsteele09/go-medapp/videos"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session is the part of auth.Manager the portal drives
type Session interface {
	auth.SnapshotSource
	Login(ctx context.Context, email, password string) (*users.User, error)
	Register(ctx context.Context, payload auth.RegisterPayload) (*users.User, error)
	Logout(ctx context.Context)
	RefreshProfile(ctx context.Context) error
}

var _ Session = (*auth.Manager)(nil)

// Services are the resource services the portal serves from
type Services struct {
	Appointments *appointments.Service
	Directory    *users.Directory
	Patients     *patients.Service
	Videos       *videos.Service
	Symptoms     *symptoms.Service
}

func (s Services) validate() error {
	switch {
	case s.Appointments == nil:
		return errors.New("[server.New] appointments service is required")
	case s.Directory == nil:
		return errors.New("[server.New] user directory is required")
	case s.Patients == nil:
		return errors.New("[server.New] patients service is required")
	case s.Videos == nil:
		return errors.New("[server.New] videos service is required")
	case s.Symptoms == nil:
		return errors.New("[server.New] symptoms service is required")
	}
	return nil
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	session  Session
	services Services
	logger   zerolog.Logger
	nowFunc  func() time.Time
}

// Option defines a function type to modify the Server
type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = nowFunc
	}
}

func New(config config.Config, session Session, services Services, options ...Option) (*Server, error) {
	if config == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if session == nil {
		return nil, errors.New("[server.New] session is required")
	}
	if err := services.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		session:  session,
		services: services,
		logger:   log.Logger,
		nowFunc:  time.Now,
	}
	for _, option := range options {
		option(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes returns the registered patterns in registration order
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
