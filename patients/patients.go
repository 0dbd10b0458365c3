// Package patients gives doctors access to patient records: assignment, disease
// catalogue and the medical information they maintain.
package patients

import (
	"context"
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

const cachePrefix = "patients"

// Filter selects which patients List returns
type Filter string

const (
	FilterAll Filter = "all" // every patient
	FilterMy  Filter = "my"  // patients assigned to the signed in doctor
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterMy:
		return Filter(s), nil
	case "":
		return FilterMy, nil
	default:
		return "", apperrors.FieldErrors{"filter": "must be one of all, my"}
	}
}

// AgeGroups are the age brackets recorded in medical information
var AgeGroups = []string{"0-18", "19-35", "36-50", "51-65", "65+"}

// Genders accepted in medical information
var Genders = []string{"Male", "Female", "Other", "Prefer not to say"}

type Disease struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

type MedicalInfo struct {
	ID        uint           `json:"id"`
	PatientID uint           `json:"patientId"`
	DoctorID  uint           `json:"doctorId"`
	Gender    string         `json:"gender"`
	AgeGroup  string         `json:"ageGroup"`
	Diseases  []Disease      `json:"diseases"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Doctor    *users.Summary `json:"doctor,omitempty"`
}

// DiseaseNames lists the names of the recorded diseases
func (mi *MedicalInfo) DiseaseNames() []string {
	if mi == nil {
		return nil
	}
	names := make([]string, 0, len(mi.Diseases))
	for _, d := range mi.Diseases {
		names = append(names, d.Name)
	}
	return names
}

type Patient struct {
	ID          uint         `json:"id"`
	FullName    string       `json:"fullName"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	MedicalInfo *MedicalInfo `json:"medicalInfo,omitempty"`
}

type Assignment struct {
	DoctorID  uint           `json:"doctorId"`
	PatientID uint           `json:"patientId"`
	Patient   *users.Summary `json:"patient,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MedicalInfoRequest replaces a patient's medical information
type MedicalInfoRequest struct {
	Gender     string `json:"gender" validate:"required"`
	AgeGroup   string `json:"ageGroup" validate:"required,oneof=0-18 19-35 36-50 51-65 65+"`
	DiseaseIDs []uint `json:"diseaseIds" validate:"dive,gt=0"`
}

func (r MedicalInfoRequest) Validate() error {
	err := validation.Struct(r)

	fe := apperrors.FieldErrors{}
	if err != nil && !apperrors.As(err, &fe) {
		return err
	}
	if r.Gender != "" && !slices.Contains(Genders, r.Gender) {
		fe["gender"] = "must be one of " + strings.Join(Genders, ", ")
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Client is the subset of api.Client the service needs
type Client interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

type Service struct {
	client Client
	cache  *querycache.Cache
}

// NewService creates a Service. cache may be nil.
func NewService(client Client, cache *querycache.Cache) (*Service, error) {
	if client == nil {
		return nil, apperrors.New("[patients.NewService] client is required")
	}
	return &Service{client: client, cache: cache}, nil
}

// List returns patients for the signed in doctor
func (s *Service) List(ctx context.Context, filter Filter) ([]Patient, error) {
	filter, err := ParseFilter(string(filter))
	if err != nil {
		return nil, err
	}

	list, err := querycache.Fetch(ctx, s.cache, cachePrefix+":"+string(filter), func(ctx context.Context) ([]Patient, error) {
		var out []Patient
		if err := s.client.Get(ctx, "/patients", url.Values{"filter": {string(filter)}}, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[patients.List]")
	}
	return slices.Clone(list), nil
}

// Diseases returns the disease catalogue
func (s *Service) Diseases(ctx context.Context) ([]Disease, error) {
	list, err := querycache.Fetch(ctx, s.cache, cachePrefix+":diseases", func(ctx context.Context) ([]Disease, error) {
		var out []Disease
		if err := s.client.Get(ctx, "/patients/diseases", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[patients.Diseases]")
	}
	return slices.Clone(list), nil
}

// Assign links a patient to the signed in doctor
func (s *Service) Assign(ctx context.Context, patientID uint) (*Assignment, error) {
	if patientID == 0 {
		return nil, apperrors.FieldErrors{"patientId": "is required"}
	}

	var out Assignment
	if err := s.client.Post(ctx, "/patients/assign", map[string]uint{"patientId": patientID}, &out); err != nil {
		return nil, apperrors.Wrapf(err, "[patients.Assign]")
	}
	s.cache.Invalidate(cachePrefix)
	return &out, nil
}

// UpdateMedicalInfo replaces the medical information of a patient
func (s *Service) UpdateMedicalInfo(ctx context.Context, patientID uint, req MedicalInfoRequest) (*MedicalInfo, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.DiseaseIDs == nil {
		req.DiseaseIDs = []uint{}
	}

	var out MedicalInfo
	path := "/patients/" + strconv.FormatUint(uint64(patientID), 10) + "/medical-info"
	if err := s.client.Post(ctx, path, req, &out); err != nil {
		return nil, apperrors.Wrapf(err, "[patients.UpdateMedicalInfo]")
	}
	s.cache.Invalidate(cachePrefix)
	return &out, nil
}
