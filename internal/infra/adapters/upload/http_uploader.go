// File: internal/infra/adapters/upload/http_uploader.go
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"conversation-store/internal/domain/ports/adapter"
)

var _ adapter.Uploader = (*HTTPUploader)(nil)

// FieldName is the multipart form field the endpoint reads the file from.
const FieldName = "file"

// maxResultBytes bounds how much of the endpoint's answer is kept.
const maxResultBytes = 1 << 20

// HTTPUploader posts files as multipart/form-data to the summarization
// endpoint. Any 2xx answer is success; its body is returned untouched.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

func NewHTTPUploader(endpoint string, timeout time.Duration) (*HTTPUploader, error) {
	if endpoint == "" {
		return nil, errors.New("upload endpoint empty")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid upload url: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPUploader{endpoint: endpoint, client: &http.Client{Timeout: timeout}}, nil
}

func (u *HTTPUploader) Upload(ctx context.Context, filename string, data []byte) (adapter.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(FieldName, filename)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	if _, err := part.Write(data); err != nil {
		return adapter.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return adapter.UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return adapter.UploadResult{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return adapter.UploadResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.UploadResult{StatusCode: resp.StatusCode}, fmt.Errorf("upload http %d", resp.StatusCode)
	}
	return adapter.UploadResult{StatusCode: resp.StatusCode, Body: payload}, nil
}
