// Package symptoms sends a symptom checklist to the triage model
package symptoms

import (
	"context"
	"math"
	"strings"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
)

type Symptoms struct {
	Fever    bool `json:"fever"`
	Cough    bool `json:"cough"`
	Headache bool `json:"headache"`
}

type Prediction struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Likely reports whether the model flagged a probable condition
func (p Prediction) Likely() bool {
	return strings.HasPrefix(p.Prediction, "Likely")
}

// Percent is the confidence rounded to a whole percentage
func (p Prediction) Percent() int {
	return int(math.Round(p.Confidence * 100))
}

// Poster is the subset of api.Client the service needs
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

type Service struct {
	client Poster
}

func NewService(client Poster) (*Service, error) {
	if client == nil {
		return nil, apperrors.New("[symptoms.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// Check asks the backend for a triage prediction. Results are never cached.
func (s *Service) Check(ctx context.Context, in Symptoms) (*Prediction, error) {
	var out Prediction
	if err := s.client.Post(ctx, "/ml/symptoms", in, &out); err != nil {
		return nil, apperrors.Wrapf(err, "[symptoms.Check]")
	}
	if out.Prediction == "" {
		return nil, apperrors.Wrapf(apperrors.ErrServer, "[symptoms.Check] empty prediction")
	}
	return &out, nil
}
