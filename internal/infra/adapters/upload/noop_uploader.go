package upload

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"conversation-store/internal/domain/ports/adapter"
)

var _ adapter.Uploader = (*NoopUploader)(nil)

// ErrNoEndpoint is returned by NoopUploader for every upload.
var ErrNoEndpoint = errors.New("no upload endpoint configured")

// NoopUploader is used when no endpoint is configured. It logs the attempt
// and reports failure so callers surface the usual status message.
type NoopUploader struct {
	log *zerolog.Logger
}

func NewNoopUploader(logger *zerolog.Logger) *NoopUploader {
	l := logger.With().Str("component", "NoopUploader").Logger()
	return &NoopUploader{log: &l}
}

func (n *NoopUploader) Upload(ctx context.Context, filename string, data []byte) (adapter.UploadResult, error) {
	n.log.Info().Str("file", filename).Int("bytes", len(data)).Msg("upload skipped: no endpoint")
	return adapter.UploadResult{}, ErrNoEndpoint
}
