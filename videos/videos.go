// Package videos is the video education library
package videos

import (
	"context"
	"io"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jrsteele09/go-medapp/api"
	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/jrsteele09/go-medapp/internal/querycache"
	"github.com/jrsteele09/go-medapp/internal/validation"
	"github.com/jrsteele09/go-medapp/users"
)

const cacheKey = "videos"

// Extensions accepted for upload
var Extensions = []string{".mp4", ".mov", ".webm", ".mkv", ".avi"}

type Video struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	FileURL     string         `json:"fileUrl"` // Absolute once returned by the Service
	Public      bool           `json:"public"`
	CreatedAt   time.Time      `json:"createdAt"`
	Uploader    *users.Summary `json:"uploader,omitempty"`
}

// UploadRequest describes a new video
type UploadRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	FileName    string    `json:"fileName" validate:"required"`
	Content     io.Reader `json:"-"`
}

func (r UploadRequest) Validate() error {
	err := validation.Struct(r)

	fe := apperrors.FieldErrors{}
	if err != nil && !apperrors.As(err, &fe) {
		return err
	}
	if r.FileName != "" && !slices.Contains(Extensions, strings.ToLower(filepath.Ext(r.FileName))) {
		fe["fileName"] = "must be a video file (" + strings.Join(Extensions, ", ") + ")"
	}
	if r.Content == nil {
		fe["file"] = "is required"
	}
	if len(fe) > 0 {
		return fe
	}
	return nil
}

// Client is the subset of api.Client the service needs
type Client interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostMultipart(ctx context.Context, path string, fields map[string]string, file api.File, out any) error
	ResolveAssetURL(path string) string
}

var _ Client = (*api.Client)(nil)

type Service struct {
	client Client
	cache  *querycache.Cache
}

// NewService creates a Service. cache may be nil.
func NewService(client Client, cache *querycache.Cache) (*Service, error) {
	if client == nil {
		return nil, apperrors.New("[videos.NewService] client is required")
	}
	return &Service{client: client, cache: cache}, nil
}

// List returns the public videos with FileURL resolved against the asset base URL
func (s *Service) List(ctx context.Context) ([]Video, error) {
	list, err := querycache.Fetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]Video, error) {
		var out []Video
		if err := s.client.Get(ctx, "/videos", nil, &out); err != nil {
			return nil, err
		}
		for i := range out {
			out[i].FileURL = s.client.ResolveAssetURL(out[i].FileURL)
		}
		return out, nil
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[videos.List]")
	}
	return slices.Clone(list), nil
}

// Upload sends a new video. Only doctors and admins may upload.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Video, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]string{"title": strings.TrimSpace(req.Title)}
	if d := strings.TrimSpace(req.Description); d != "" {
		fields["description"] = d
	}

	var out Video
	err := s.client.PostMultipart(ctx, "/videos", fields, api.File{
		FieldName: "file",
		FileName:  filepath.Base(req.FileName),
		Content:   req.Content,
	}, &out)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[videos.Upload]")
	}
	out.FileURL = s.client.ResolveAssetURL(out.FileURL)
	s.cache.Invalidate(cacheKey)
	return &out, nil
}
