package picker

import (
	"context"
	"fmt"
	"io"
	"path"

	"go.uber.org/zap"

	"galleryupload/internal/domain"
	"galleryupload/internal/repository"
)

// S3Gallery picks images stored under a prefix of a bucket.
type S3Gallery struct {
	repo   repository.S3Repository
	prefix string
	log    *zap.Logger
}

func NewS3Gallery(repo repository.S3Repository, prefix string, log *zap.Logger) *S3Gallery {
	return &S3Gallery{repo: repo, prefix: prefix, log: log}
}

func (g *S3Gallery) Pick(ctx context.Context, limit int) ([]domain.ImageDescriptor, error) {
	limit = normalizeLimit(limit)

	objects, err := g.repo.ListFiles(ctx, g.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery objects: %w", err)
	}

	var picked []domain.ImageDescriptor
	for _, obj := range objects {
		if len(picked) == limit {
			break
		}
		name := path.Base(obj.Key)
		mimeType, ok := imageMimeType(name)
		if !ok {
			continue
		}

		size := obj.Size
		picked = append(picked, domain.ImageDescriptor{
			SourceURI:    fmt.Sprintf("s3://%s/%s", g.repo.Bucket(), obj.Key),
			FileName:     name,
			MimeType:     mimeType,
			PlatformFile: g.objectOpener(obj.Key),
			SizeBytes:    &size,
		})
	}

	g.log.Info("Picked images from bucket",
		zap.String("bucket", g.repo.Bucket()),
		zap.String("prefix", g.prefix),
		zap.Int("count", len(picked)))

	return picked, nil
}

func (g *S3Gallery) objectOpener(key string) domain.FileOpener {
	return domain.OpenerFunc(func(ctx context.Context) (io.ReadCloser, error) {
		return g.repo.DownloadFile(ctx, key)
	})
}
