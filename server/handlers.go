package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-medapp/appointments"
	"github.com/jrsteele09/go-medapp/auth"
	"github.com/jrsteele09/go-medapp/gate"
	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/patients"
	"github.com/jrsteele09/go-medapp/symptoms"
	"github.com/jrsteele09/go-medapp/token"
	"github.com/jrsteele09/go-medapp/users"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"errors,omitempty"`
}

// tokenView describes the bearer token without exposing it
type tokenView struct {
	Opaque    bool       `json:"opaque,omitempty"` // not a JWT, nothing could be decoded
	UserID    uint       `json:"userId,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Expired   bool       `json:"expired"`
}

type sessionView struct {
	State   string      `json:"state"`
	Loading bool        `json:"loading"`
	User    *users.User `json:"user"`
	Token   *tokenView  `json:"token"`
}

func (s *Server) sessionView(snap auth.Snapshot) sessionView {
	view := sessionView{
		State:   snap.State.String(),
		Loading: snap.Loading,
		User:    snap.User,
	}
	if snap.Token == "" {
		return view
	}
	claims, err := token.Inspect(snap.Token)
	if err != nil {
		view.Token = &tokenView{Opaque: true}
		return view
	}
	view.Token = &tokenView{
		UserID:    claims.UserID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt,
		Expired:   claims.Expired(s.nowFunc()),
	}
	return view
}

// IndexHandler lists the portal's routes
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"app":    s.config.GetAppName(),
			"routes": s.Routes(),
		})
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"app":   s.config.GetAppName(),
			"env":   s.env,
			"state": s.session.Snapshot().State.String(),
			"time":  s.nowFunc().UTC(),
		})
	}
}

// SignInHandler is where the gate sends visitors without a session
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"state":   s.session.Snapshot().State.String(),
			"message": "sign in with POST " + RouteSessionLogin,
		})
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.sessionView(s.session.Snapshot()))
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds auth.Credentials
		if !decodeBody(w, r, &creds) {
			return
		}
		user, err := s.session.Login(r.Context(), creds.Email, creds.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.RegisterPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		user, err := s.session.Register(r.Context(), payload)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.session.Logout(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshHandler re-fetches the profile. A failed refresh has already signed the session out.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.session.RefreshProfile(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.sessionView(s.session.Snapshot()))
	}
}

func (s *Server) DoctorDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := gate.UserFrom(r.Context())
		list, err := s.services.Appointments.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		mine, err := s.services.Patients.List(r.Context(), patients.FilterMy)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         user,
			"appointments": upcoming(list, s.nowFunc()),
			"patients":     mine,
		})
	}
}

func (s *Server) PatientDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := gate.UserFrom(r.Context())
		list, err := s.services.Appointments.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		doctors, err := s.services.Directory.Doctors(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         user,
			"appointments": upcoming(list, s.nowFunc()),
			"doctors":      doctors,
		})
	}
}

// upcoming keeps pending and confirmed appointments that have not started yet
func upcoming(list []appointments.Appointment, now time.Time) []appointments.Appointment {
	out := make([]appointments.Appointment, 0, len(list))
	for _, a := range list {
		if a.ScheduledAt.Before(now) {
			continue
		}
		if a.Status == appointments.StatusPending || a.Status == appointments.StatusConfirmed {
			out = append(out, a)
		}
	}
	return out
}

func (s *Server) PatientsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := patients.ParseFilter(r.URL.Query().Get("filter"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := s.services.Patients.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (s *Server) SymptomsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in symptoms.Symptoms
		if !decodeBody(w, r, &in) {
			return
		}
		p, err := s.services.Symptoms.Check(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"prediction": p.Prediction,
			"confidence": p.Confidence,
			"percent":    p.Percent(),
			"likely":     p.Likely(),
		})
	}
}

func (s *Server) VideosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.services.Videos.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// PreflightHandler answers OPTIONS requests CorsMiddleware let through
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps a client error onto the portal's response status
func statusFor(err error) int {
	var apiErr *apperrors.APIError
	switch {
	case apperrors.Is(err, auth.ErrSuperseded):
		return http.StatusConflict
	case apperrors.As(err, &apiErr):
		if apiErr.Status >= 500 {
			return http.StatusBadGateway
		}
		return apiErr.Status
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrAuth):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrNetwork):
		return http.StatusServiceUnavailable
	case apperrors.Is(err, apperrors.ErrServer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var fe apperrors.FieldErrors
	var apiErr *apperrors.APIError
	switch {
	case apperrors.As(err, &fe):
		resp.Error = apperrors.ErrValidation.Error()
		resp.Fields = fe
	case apperrors.As(err, &apiErr):
		resp.Error = apiErr.Message
		resp.Fields = apiErr.Fields
	}

	event := zerolog.Ctx(r.Context()).Warn()
	if status >= 500 {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
