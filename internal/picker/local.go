package picker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"galleryupload/internal/domain"
)

// LocalGallery picks images from a directory on disk.
type LocalGallery struct {
	dir string
	log *zap.Logger
}

func NewLocalGallery(dir string, log *zap.Logger) *LocalGallery {
	return &LocalGallery{dir: dir, log: log}
}

func (g *LocalGallery) Pick(ctx context.Context, limit int) ([]domain.ImageDescriptor, error) {
	limit = normalizeLimit(limit)

	root, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve gallery dir %s: %w", g.dir, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery dir %s: %w", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var picked []domain.ImageDescriptor
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(picked) == limit {
			break
		}
		if !entry.Type().IsRegular() {
			continue
		}

		mimeType, ok := imageMimeType(entry.Name())
		if !ok {
			g.log.Debug("Skipping non-image file", zap.String("file", entry.Name()))
			continue
		}

		info, err := entry.Info()
		if err != nil {
			g.log.Warn("Failed to stat gallery file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}

		p := filepath.Join(root, entry.Name())
		size := info.Size()
		picked = append(picked, domain.ImageDescriptor{
			SourceURI:    "file://" + filepath.ToSlash(p),
			FileName:     entry.Name(),
			MimeType:     mimeType,
			PlatformFile: fileOpener(p),
			SizeBytes:    &size,
		})
	}

	g.log.Info("Picked images from directory",
		zap.String("dir", root),
		zap.Int("count", len(picked)))

	return picked, nil
}

func fileOpener(p string) domain.FileOpener {
	return domain.OpenerFunc(func(context.Context) (io.ReadCloser, error) {
		return os.Open(p)
	})
}
