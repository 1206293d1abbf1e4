package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"galleryupload/internal/domain"
	"galleryupload/internal/picker"
	"galleryupload/internal/service"
)

// Session is the state behind one upload screen: the token, the current pick,
// progress text and the upload log.
type Session struct {
	mu        sync.RWMutex
	token     string
	images    []domain.ImageDescriptor
	progress  string
	uploading bool

	logs     *LogStore
	gallery  picker.Gallery
	uploader service.UploadService
	limit    int
	log      *zap.Logger
}

func New(gallery picker.Gallery, uploader service.UploadService, limit int, token string, log *zap.Logger) *Session {
	return &Session{
		token:    token,
		logs:     NewLogStore(),
		gallery:  gallery,
		uploader: uploader,
		limit:    limit,
		log:      log,
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Pick replaces the current selection with a fresh pick from the gallery.
func (s *Session) Pick(ctx context.Context) ([]domain.ImageDescriptor, error) {
	images, err := s.gallery.Pick(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to pick images: %w", err)
	}

	s.mu.Lock()
	s.images = images
	s.mu.Unlock()

	return append([]domain.ImageDescriptor(nil), images...), nil
}

func (s *Session) Images() []domain.ImageDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ImageDescriptor(nil), s.images...)
}

func (s *Session) Progress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

func (s *Session) Uploading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploading
}

func (s *Session) Logs() *LogStore {
	return s.logs
}

// Upload runs the upload loop over the current selection with the current
// token. Entries land in the log as each image finishes. Only one run may be
// active at a time.
func (s *Session) Upload(ctx context.Context) ([]domain.UploadLogEntry, error) {
	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return nil, domain.ErrUploadInProgress
	}
	s.uploading = true
	images := append([]domain.ImageDescriptor(nil), s.images...)
	token := s.token
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.uploading = false
		s.mu.Unlock()
	}()

	s.log.Info("Starting upload run", zap.Int("images", len(images)))

	entries := s.uploader.UploadAll(ctx, images, token, service.Observer{
		Progress: s.setProgress,
		Entry: func(entry domain.UploadLogEntry) {
			s.logs.Prepend(entry)
		},
	})

	failed := 0
	for _, e := range entries {
		if !e.Succeeded() {
			failed++
		}
	}
	s.log.Info("Upload run finished",
		zap.Int("images", len(entries)),
		zap.Int("failed", failed))

	return entries, nil
}

func (s *Session) setProgress(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = status
}
