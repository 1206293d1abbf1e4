package picker

import (
	"context"
	"mime"
	"path"
	"strings"

	"galleryupload/internal/domain"
)

// DefaultLimit matches the selection cap of the device media picker.
const DefaultLimit = 10

// Gallery hands out descriptors for up to limit picked images.
type Gallery interface {
	Pick(ctx context.Context, limit int) ([]domain.ImageDescriptor, error)
}

func imageMimeType(name string) (string, bool) {
	mt := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if mt == "" {
		return "", false
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt, strings.HasPrefix(mt, "image/")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
