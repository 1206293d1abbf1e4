package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"galleryupload/internal/config"
	"galleryupload/internal/domain"
	"galleryupload/pkg/utils"
)

const (
	fileField       = "file"
	maxCapturedBody = 4 << 10
)

// Observer receives run updates as they happen. Progress gets a status line
// before every attempt and an empty string once the run is over; Entry gets
// each log entry as soon as its image is done. Both are optional.
type Observer struct {
	Progress func(status string)
	Entry    func(entry domain.UploadLogEntry)
}

type UploadService interface {
	// UploadAll uploads images one after another and returns one log entry
	// per image, newest first. It never fails as a whole.
	UploadAll(ctx context.Context, images []domain.ImageDescriptor, token string, obs Observer) []domain.UploadLogEntry
}

type uploadService struct {
	client   *http.Client
	builder  BodyBuilder
	proc     *utils.ImageProcessor
	upload   config.UploadConfig
	compress config.CompressConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewUploadService(cfg *config.Config, client *http.Client, builder BodyBuilder, proc *utils.ImageProcessor, log *zap.Logger) UploadService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Upload.Timeout}
	}
	return &uploadService{
		client:   client,
		builder:  builder,
		proc:     proc,
		upload:   cfg.Upload,
		compress: cfg.Compress,
		log:      log,
		now:      time.Now,
	}
}

func (s *uploadService) UploadAll(ctx context.Context, images []domain.ImageDescriptor, token string, obs Observer) []domain.UploadLogEntry {
	progress := obs.Progress
	if progress == nil {
		progress = func(string) {}
	}

	entries := make([]domain.UploadLogEntry, 0, len(images))
	for i, image := range images {
		entry := s.uploadImage(ctx, image, token, func(attempt int) {
			progress(fmt.Sprintf("Uploading image %d/%d attempt %d", i+1, len(images), attempt))
		})
		entries = append([]domain.UploadLogEntry{entry}, entries...)
		if obs.Entry != nil {
			obs.Entry(entry)
		}
	}
	progress("")

	return entries
}

func (s *uploadService) uploadImage(ctx context.Context, image domain.ImageDescriptor, token string, onAttempt func(int)) domain.UploadLogEntry {
	body, err := s.builder.Build(ctx, image)
	if err != nil {
		s.log.Error("Failed to build upload body",
			zap.String("file", image.FileName),
			zap.Error(err))
		return s.failure(domain.UploadRequestBody{
			URI:      image.SourceURI,
			Name:     image.FileName,
			MimeType: image.MimeType,
		}, nil, err, 0)
	}

	body, err = s.maybeCompress(ctx, body)
	if err != nil {
		s.log.Error("Failed to compress image",
			zap.String("file", body.Name),
			zap.Error(err))
		return s.failure(body, nil, err, 0)
	}

	var (
		resp    *domain.CapturedResponse
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= s.upload.MaxAttempts; attempt++ {
		onAttempt(attempt)
		s.log.Info("Uploading image",
			zap.String("file", body.Name),
			zap.Int("attempt", attempt),
			zap.Int64("size", body.Size))

		resp, lastErr = s.post(ctx, body, token)
		if lastErr == nil {
			s.log.Info("Image uploaded",
				zap.String("file", body.Name),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			return s.entry(domain.OutcomeSuccess, body, resp, nil, attempt)
		}

		s.log.Warn("Upload attempt failed",
			zap.String("file", body.Name),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if attempt == s.upload.MaxAttempts {
			break
		}
		if err := sleep(ctx, s.upload.RetryDelay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	return s.failure(body, resp, lastErr, attempt)
}

func (s *uploadService) maybeCompress(ctx context.Context, body domain.UploadRequestBody) (domain.UploadRequestBody, error) {
	if !s.compress.Enabled || s.proc == nil || body.Size <= s.compress.Threshold {
		return body, nil
	}

	out, quality, err := s.proc.CompressToFit(ctx, body.Data, s.compress.Threshold, s.compress.Quality)
	switch {
	case errors.Is(err, image.ErrFormat):
		s.log.Warn("Cannot decode image, uploading it uncompressed",
			zap.String("file", body.Name),
			zap.String("type", body.MimeType),
			zap.Int64("size", body.Size))
		return body, nil
	case errors.Is(err, utils.ErrThresholdNotMet):
		s.log.Warn("Uploading image above size threshold",
			zap.String("file", body.Name),
			zap.Int("size", len(out)),
			zap.Int64("threshold", s.compress.Threshold))
		if len(out) >= len(body.Data) {
			return body, nil
		}
	case err != nil:
		return body, err
	}

	s.log.Info("Image compressed for upload",
		zap.String("file", body.Name),
		zap.Int64("original_size", body.OriginalSize),
		zap.Int("size", len(out)),
		zap.Float64("quality", quality))

	body.Data = out
	body.Size = int64(len(out))
	body.Compressed = true
	body.MimeType = "image/jpeg"
	body.Name = jpegName(body.Name)
	return body, nil
}

func (s *uploadService) post(ctx context.Context, body domain.UploadRequestBody, token string) (*domain.CapturedResponse, error) {
	payload, contentType, err := multipartBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upload.Endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	captured := captureResponse(res)
	if !captured.OK {
		return captured, fmt.Errorf("%w: %s", domain.ErrUploadStatus, res.Status)
	}
	return captured, nil
}

func multipartBody(body domain.UploadRequestBody) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	mimeType := body.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, escapeQuotes(body.Name)))
	h.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(body.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func captureResponse(res *http.Response) *domain.CapturedResponse {
	captured := &domain.CapturedResponse{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		OK:         res.StatusCode >= 200 && res.StatusCode < 300,
		Headers:    make(map[string]string, len(res.Header)),
	}
	for k := range res.Header {
		captured.Headers[k] = res.Header.Get(k)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxCapturedBody))
	if err == nil {
		captured.Body = string(data)
	}
	return captured
}

func (s *uploadService) entry(outcome domain.Outcome, body domain.UploadRequestBody, resp *domain.CapturedResponse, err error, attempts int) domain.UploadLogEntry {
	entry := domain.UploadLogEntry{
		ID:        uuid.New().String(),
		Outcome:   outcome,
		Timestamp: s.now().Format(time.RFC3339),
		Request:   body,
		Response:  resp,
		Attempts:  attempts,
	}
	entry.Request.Data = nil
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

func (s *uploadService) failure(body domain.UploadRequestBody, resp *domain.CapturedResponse, err error, attempts int) domain.UploadLogEntry {
	return s.entry(domain.OutcomeFailure, body, resp, err, attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jpegName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".jpg" || ext == ".jpeg" {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}
