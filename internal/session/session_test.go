package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"galleryupload/internal/domain"
	"galleryupload/internal/service"
)

type stubGallery struct {
	picks [][]domain.ImageDescriptor
	limit int
	err   error
}

func (g *stubGallery) Pick(_ context.Context, limit int) ([]domain.ImageDescriptor, error) {
	g.limit = limit
	if g.err != nil {
		return nil, g.err
	}
	next := g.picks[0]
	g.picks = g.picks[1:]
	return next, nil
}

// stubUploader succeeds for every image and records what it was given.
type stubUploader struct {
	tokens  []string
	block   chan struct{}
	started chan struct{}
}

func (u *stubUploader) UploadAll(_ context.Context, images []domain.ImageDescriptor, token string, obs service.Observer) []domain.UploadLogEntry {
	if u.started != nil {
		close(u.started)
	}
	if u.block != nil {
		<-u.block
	}
	u.tokens = append(u.tokens, token)

	var entries []domain.UploadLogEntry
	for i, img := range images {
		if obs.Progress != nil {
			obs.Progress(fmt.Sprintf("Uploading image %d", i+1))
		}
		e := domain.UploadLogEntry{
			ID:       img.FileName,
			Outcome:  domain.OutcomeSuccess,
			Request:  domain.UploadRequestBody{Name: img.FileName},
			Attempts: 1,
		}
		entries = append([]domain.UploadLogEntry{e}, entries...)
		if obs.Entry != nil {
			obs.Entry(e)
		}
	}
	if obs.Progress != nil {
		obs.Progress("")
	}
	return entries
}

func images(names ...string) []domain.ImageDescriptor {
	out := make([]domain.ImageDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, domain.ImageDescriptor{FileName: n})
	}
	return out
}

func names(entries []domain.UploadLogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Request.Name)
	}
	return out
}

func TestPickReplacesSelection(t *testing.T) {
	g := &stubGallery{picks: [][]domain.ImageDescriptor{images("a", "b"), images("c")}}
	s := New(g, &stubUploader{}, 10, "", zap.NewNop())

	_, err := s.Pick(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Images(), 2)
	assert.Equal(t, 10, g.limit)

	_, err = s.Pick(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Images(), 1)
	assert.Equal(t, "c", s.Images()[0].FileName)
}

func TestPickErrorKeepsSelection(t *testing.T) {
	g := &stubGallery{picks: [][]domain.ImageDescriptor{images("a")}}
	s := New(g, &stubUploader{}, 10, "", zap.NewNop())
	_, err := s.Pick(context.Background())
	require.NoError(t, err)

	g.err = errors.New("permission denied")
	_, err = s.Pick(context.Background())
	assert.Error(t, err)
	assert.Len(t, s.Images(), 1)
}

func TestUploadPrependsLogsAndUsesToken(t *testing.T) {
	g := &stubGallery{picks: [][]domain.ImageDescriptor{images("a", "b"), images("c")}}
	u := &stubUploader{}
	s := New(g, u, 10, "initial", zap.NewNop())

	_, err := s.Pick(context.Background())
	require.NoError(t, err)
	entries, err := s.Upload(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, []string{"b", "a"}, names(s.Logs().Entries()))

	s.SetToken("changed")
	_, err = s.Pick(context.Background())
	require.NoError(t, err)
	_, err = s.Upload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "b", "a"}, names(s.Logs().Entries()))
	assert.Equal(t, []string{"initial", "changed"}, u.tokens)
	assert.Empty(t, s.Progress())
}

func TestUploadWithNothingPicked(t *testing.T) {
	s := New(&stubGallery{}, &stubUploader{}, 10, "", zap.NewNop())

	entries, err := s.Upload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, s.Logs().Len())
}

func TestUploadRejectsOverlappingRuns(t *testing.T) {
	g := &stubGallery{picks: [][]domain.ImageDescriptor{images("a")}}
	u := &stubUploader{block: make(chan struct{}), started: make(chan struct{})}
	s := New(g, u, 10, "", zap.NewNop())
	_, err := s.Pick(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background())
		done <- err
	}()
	<-u.started

	assert.True(t, s.Uploading())
	_, err = s.Upload(context.Background())
	assert.ErrorIs(t, err, domain.ErrUploadInProgress)

	close(u.block)
	require.NoError(t, <-done)
	assert.False(t, s.Uploading())
}

func TestClearThenRepopulate(t *testing.T) {
	g := &stubGallery{picks: [][]domain.ImageDescriptor{images("a", "b", "c")}}
	s := New(g, &stubUploader{}, 10, "", zap.NewNop())
	_, err := s.Pick(context.Background())
	require.NoError(t, err)

	_, err = s.Upload(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, s.Logs().Len())

	s.Logs().Clear()
	assert.Zero(t, s.Logs().Len())

	_, err = s.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, names(s.Logs().Entries()))
}
