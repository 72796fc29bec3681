package adapter

import "context"

// UploadResult is the provider-defined payload returned on success. The store
// never inspects it.
type UploadResult struct {
	StatusCode int
	Body       []byte
}

// Uploader is the port for the remote summarization endpoint.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (UploadResult, error)
}
