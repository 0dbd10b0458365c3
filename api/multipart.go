package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-medapp/internal/errors"
)

// File is a file part of a multipart upload
type File struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// PostMultipart streams fields and file as multipart/form-data to path.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file File, out any) error {
	if file.Content == nil {
		return errors.Wrapf(errors.ErrValidation, "[api] %s: file content is required", path)
	}
	if file.FieldName == "" {
		file.FieldName = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, file))
	}()
	defer pr.Close()

	return c.do(ctx, http.MethodPost, path, nil, pr, mw.FormDataContentType(), out)
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, file File) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile(file.FieldName, file.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return err
	}
	return mw.Close()
}
