package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"galleryupload/internal/config"
	"galleryupload/internal/domain"
	"galleryupload/internal/service"
	"galleryupload/internal/session"
)

type fixedGallery []domain.ImageDescriptor

func (g fixedGallery) Pick(context.Context, int) ([]domain.ImageDescriptor, error) {
	return g, nil
}

func opener(s string) domain.FileOpener {
	return domain.OpenerFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	})
}

func newTestRouter(t *testing.T, status int) (http.Handler, *int32) {
	t.Helper()
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{Upload: config.UploadConfig{
		Endpoint:    upstream.URL,
		Platform:    domain.PlatformWeb,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Timeout:     5 * time.Second,
	}}
	builder, err := service.NewBodyBuilder(cfg.Upload.Platform)
	require.NoError(t, err)
	log := zap.NewNop()
	uploader := service.NewUploadService(cfg, nil, builder, nil, log)

	gallery := fixedGallery{
		{SourceURI: "blob:1", FileName: "one.jpg", MimeType: "image/jpeg", PlatformFile: opener("1")},
		{SourceURI: "blob:2", FileName: "two.jpg", MimeType: "image/jpeg", PlatformFile: opener("2")},
	}
	sess := session.New(gallery, uploader, 10, "", log)
	return NewRouter(sess, log), &hits
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, http.StatusOK)
	w, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", body["status"])
}

func TestTokenRoundTrip(t *testing.T) {
	h, _ := newTestRouter(t, http.StatusOK)

	w, _ := do(t, h, http.MethodPut, "/api/token", `{"token":"abc"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	_, body := do(t, h, http.MethodGet, "/api/token", "")
	assert.Equal(t, "abc", body["token"])

	w, _ = do(t, h, http.MethodPut, "/api/token", `{"token":""}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodPut, "/api/token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPickUploadAndLogs(t *testing.T) {
	h, hits := newTestRouter(t, http.StatusOK)

	w, body := do(t, h, http.MethodPost, "/api/pick", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["images"], 2)

	_, body = do(t, h, http.MethodGet, "/api/images", "")
	assert.Len(t, body["images"], 2)

	w, body = do(t, h, http.MethodPost, "/api/upload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["uploaded"])
	assert.EqualValues(t, 0, body["failed"])
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))

	_, body = do(t, h, http.MethodGet, "/api/logs", "")
	logs := body["logs"].([]any)
	require.Len(t, logs, 2)
	first := logs[0].(map[string]any)
	assert.Equal(t, "two.jpg", first["request"].(map[string]any)["name"])
	assert.EqualValues(t, -1, body["expanded"])

	_, body = do(t, h, http.MethodGet, "/api/progress", "")
	assert.Equal(t, "", body["progress"])
	assert.Equal(t, false, body["uploading"])
}

func TestUploadFailuresAreReported(t *testing.T) {
	h, hits := newTestRouter(t, http.StatusUnauthorized)

	do(t, h, http.MethodPost, "/api/pick", "")
	w, body := do(t, h, http.MethodPost, "/api/upload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["uploaded"])
	assert.EqualValues(t, 2, body["failed"])
	assert.EqualValues(t, 6, atomic.LoadInt32(hits))
}

func TestToggleAndClearLogs(t *testing.T) {
	h, _ := newTestRouter(t, http.StatusOK)

	w, _ := do(t, h, http.MethodPost, "/api/logs/0/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(t, h, http.MethodPost, "/api/pick", "")
	do(t, h, http.MethodPost, "/api/upload", "")

	w, body := do(t, h, http.MethodPost, "/api/logs/1/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["expanded"])

	_, body = do(t, h, http.MethodPost, "/api/logs/1/toggle", "")
	assert.EqualValues(t, -1, body["expanded"])

	w, _ = do(t, h, http.MethodPost, "/api/logs/x/toggle", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodDelete, "/api/logs", "")
	assert.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, h, http.MethodGet, "/api/logs", "")
	assert.Empty(t, body["logs"])
}

func TestUploadOutlivesClientCancel(t *testing.T) {
	h, hits := newTestRouter(t, http.StatusOK)
	do(t, h, http.MethodPost, "/api/pick", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["uploaded"])
	assert.EqualValues(t, 0, body["failed"])
}
