// Package appointments books and manages consultations between patients and doctors.
package appointments

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/querycache"
	"github.com/jrsteele09/go-medapp/internal/validation"
	"github.com/jrsteele09/go-medapp/users"
)

const (
	cacheKey           = "appointments"
	DefaultDurationMin = 30
)

// Status of an appointment
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Statuses, st) {
		return "", apperrors.FieldErrors{"status": fmt.Sprintf("unknown status %q", s)}
	}
	return st, nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Appointment struct {
	ID          uint           `json:"id"`
	DoctorID    uint           `json:"doctorId"`
	PatientID   uint           `json:"patientId"`
	ScheduledAt time.Time      `json:"scheduledAt"`
	DurationMin int            `json:"durationMin"`
	Status      Status         `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Doctor      *users.Summary `json:"doctor,omitempty"`
	Patient     *users.Summary `json:"patient,omitempty"`
}

// BookRequest asks for a consultation with a doctor
type BookRequest struct {
	DoctorID    uint      `json:"doctorId" validate:"required"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
	DurationMin int       `json:"durationMin" validate:"gte=5,lte=240"`
	Reason      string    `json:"reason,omitempty" validate:"max=500"`
}

// Validate checks the request as the booking form does. A zero duration means DefaultDurationMin.
func (r BookRequest) Validate(now time.Time) error {
	if r.DurationMin == 0 {
		r.DurationMin = DefaultDurationMin
	}
	err := validation.Struct(r)

	fe := apperrors.FieldErrors{}
	if err != nil && !apperrors.As(err, &fe) {
		return err
	}
	if !r.ScheduledAt.IsZero() && !r.ScheduledAt.After(now) {
		fe["scheduledAt"] = "must be in the future"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

type bookBody struct {
	DoctorID    uint   `json:"doctorId"`
	ScheduledAt string `json:"scheduledAt"`
	DurationMin int    `json:"durationMin"`
	Reason      string `json:"reason,omitempty"`
}

type statusBody struct {
	Status Status  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// Client is the subset of api.Client the service needs
type Client interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

type Service struct {
	client  Client
	cache   *querycache.Cache
	nowTime func() time.Time
}

type Option func(*Service)

// WithCache caches List results in c
func WithCache(c *querycache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(client Client, options ...Option) (*Service, error) {
	if client == nil {
		return nil, apperrors.New("[appointments.NewService] client is required")
	}
	s := &Service{client: client, nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// List returns the appointments visible to the signed in user
func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	list, err := querycache.Fetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]Appointment, error) {
		var out []Appointment
		if err := s.client.Get(ctx, "/appointments", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[appointments.List]")
	}
	return slices.Clone(list), nil
}

// Book creates a pending appointment for the signed in patient
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.DurationMin == 0 {
		req.DurationMin = DefaultDurationMin
	}
	if err := req.Validate(s.nowTime()); err != nil {
		return nil, err
	}

	var out Appointment
	err := s.client.Post(ctx, "/appointments", bookBody{
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt.UTC().Format(time.RFC3339),
		DurationMin: req.DurationMin,
		Reason:      strings.TrimSpace(req.Reason),
	}, &out)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[appointments.Book]")
	}
	s.cache.Invalidate(cacheKey)
	return &out, nil
}

// UpdateStatus moves an appointment to status. Notes are left unchanged when nil.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status Status, notes *string) (*Appointment, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	var out Appointment
	path := "/appointments/" + strconv.FormatUint(uint64(id), 10) + "/status"
	if err := s.client.Put(ctx, path, statusBody{Status: status, Notes: notes}, &out); err != nil {
		return nil, apperrors.Wrapf(err, "[appointments.UpdateStatus]")
	}
	s.cache.Invalidate(cacheKey)
	return &out, nil
}
