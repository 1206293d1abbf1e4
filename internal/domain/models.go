package domain

import (
	"context"
	"io"
)

type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// FileOpener is the platform file handle a gallery hands out with each picked image.
type FileOpener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

type OpenerFunc func(ctx context.Context) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

type ImageDescriptor struct {
	SourceURI    string     `json:"source_uri"`
	FileName     string     `json:"file_name"`
	MimeType     string     `json:"mime_type"`
	PlatformFile FileOpener `json:"-"`
	SizeBytes    *int64     `json:"size_bytes,omitempty"`
}

type UploadRequestBody struct {
	URI          string `json:"uri"`
	Name         string `json:"name"`
	MimeType     string `json:"type"`
	Data         []byte `json:"-"`
	Size         int64  `json:"size"`
	OriginalSize int64  `json:"original_size"`
	Compressed   bool   `json:"compressed"`
}

type CapturedResponse struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	OK         bool              `json:"ok"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

type UploadLogEntry struct {
	ID        string            `json:"id"`
	Outcome   Outcome           `json:"outcome"`
	Timestamp string            `json:"timestamp"`
	Request   UploadRequestBody `json:"request"`
	Response  *CapturedResponse `json:"response,omitempty"`
	Error     string            `json:"error,omitempty"`
	Attempts  int               `json:"attempts"`
}

func (e UploadLogEntry) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}
