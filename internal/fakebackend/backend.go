// Package fakebackend is an in-memory implementation of the MedApp REST
// contract served over httptest, used by tests across the module.
package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-medapp/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtSecret = "fake-backend-secret"
	tokenTTL  = 24 * time.Hour
)

type account struct {
	user         users.User
	passwordHash []byte
}

// Request is a recorded incoming request
type Request struct {
	Method        string
	Path          string
	Authorization string
}

// Backend serves the MedApp API under /api
type Backend struct {
	server *httptest.Server

	mu           sync.Mutex
	nextID       uint
	accounts     map[uint]*account
	emails       map[string]uint
	appointments []*appointment
	diseases     []disease
	assignments  map[uint]map[uint]bool // doctorID -> patientIDs
	medicalInfo  map[uint]*medicalInfo  // patientID -> info
	videos       []*video
	requests     []Request
	failures     map[string]int
	holds        map[string]*Hold
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		nextID:      1,
		accounts:    make(map[uint]*account),
		emails:      make(map[string]uint),
		assignments: make(map[uint]map[uint]bool),
		medicalInfo: make(map[uint]*medicalInfo),
		failures:    make(map[string]int),
		holds:       make(map[string]*Hold),
		diseases: []disease{
			{ID: 1, Name: "Diabetes", Category: "Chronic"},
			{ID: 2, Name: "Hypertension", Category: "Chronic"},
			{ID: 3, Name: "Asthma", Category: "Chronic"},
		},
	}
	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL, e.g. http://127.0.0.1:1234/api
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// AssetURL is the base that relative file paths resolve against
func (b *Backend) AssetURL() string {
	return b.server.URL
}

// Close stops the server; subsequent requests fail with a network error
func (b *Backend) Close() {
	b.server.Close()
}

// AddUser creates an account and returns the stored user with its id assigned.
func (b *Backend) AddUser(u users.User, password string) users.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if u.ID == 0 {
		u.ID = b.nextID
	}
	if u.ID >= b.nextID {
		b.nextID = u.ID + 1
	}
	u.Email = strings.ToLower(u.Email)
	b.accounts[u.ID] = &account{user: u, passwordHash: hash}
	b.emails[u.Email] = u.ID
	return u
}

// IssueToken signs a token for userID the way the backend does on login.
func (b *Backend) IssueToken(userID uint, role users.Role) string {
	return b.issueToken(userID, role, tokenTTL)
}

// ExpiredToken signs a token that expired an hour ago
func (b *Backend) ExpiredToken(userID uint, role users.Role) string {
	return b.issueToken(userID, role, -time.Hour)
}

func (b *Backend) issueToken(userID uint, role users.Role, ttl time.Duration) string {
	now := time.Now()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return raw
}

// Fail makes every request to "METHOD /path" answer with status until Recover is called.
// The path is relative to /api, e.g. Fail("GET /auth/me", 401).
func (b *Backend) Fail(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = status
}

func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

// Hold parks the next request to route until Release is called on the returned Hold.
func (b *Backend) Hold(route string) *Hold {
	h := &Hold{arrived: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.holds[route] = h
	return h
}

// Requests returns the requests received so far
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// LastRequest returns the most recent request to route, if any
func (b *Backend) LastRequest(route string) (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		r := b.requests[i]
		if r.Method+" "+r.Path == route {
			return r, true
		}
	}
	return Request{}, false
}

// Hold is a parked request
type Hold struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request has reached the backend
func (h *Hold) Arrived() <-chan struct{} {
	return h.arrived
}

func (h *Hold) Release() {
	h.once.Do(func() { close(h.release) })
}

type claims struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	r.Use(b.recordMiddleware)
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", b.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", b.authed(b.me)).Methods(http.MethodGet)

	api.HandleFunc("/appointments", b.authed(b.listAppointments)).Methods(http.MethodGet)
	api.HandleFunc("/appointments", b.authed(b.createAppointment)).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id:[0-9]+}/status", b.authed(b.updateAppointmentStatus)).Methods(http.MethodPut)

	api.HandleFunc("/users/doctors", b.authed(b.listDoctors)).Methods(http.MethodGet)
	api.HandleFunc("/users/patients", b.authed(b.listPatientUsers)).Methods(http.MethodGet)

	api.HandleFunc("/patients", b.doctorOnly(b.listPatients)).Methods(http.MethodGet)
	api.HandleFunc("/patients/diseases", b.doctorOnly(b.listDiseases)).Methods(http.MethodGet)
	api.HandleFunc("/patients/assign", b.doctorOnly(b.assignPatient)).Methods(http.MethodPost)
	api.HandleFunc("/patients/{id:[0-9]+}/medical-info", b.doctorOnly(b.updateMedicalInfo)).Methods(http.MethodPost)

	api.HandleFunc("/videos", b.listVideos).Methods(http.MethodGet)
	api.HandleFunc("/videos", b.authed(b.uploadVideo)).Methods(http.MethodPost)

	api.HandleFunc("/ml/symptoms", b.authed(b.predictSymptoms)).Methods(http.MethodPost)
	return r
}

func (b *Backend) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		route := r.Method + " " + path

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
		})
		status, failing := b.failures[route]
		hold := b.holds[route]
		delete(b.holds, route)
		b.mu.Unlock()

		if hold != nil {
			close(hold.arrived)
			select {
			case <-hold.release:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (b *Backend) currentUser(r *http.Request) users.User {
	u, _ := r.Context().Value(userKey{}).(users.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
