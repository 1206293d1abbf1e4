package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"galleryupload/internal/domain"
)

// BodyBuilder turns a picked image into the request body for one upload.
type BodyBuilder interface {
	Build(ctx context.Context, image domain.ImageDescriptor) (domain.UploadRequestBody, error)
}

func NewBodyBuilder(platform domain.Platform) (BodyBuilder, error) {
	switch platform {
	case domain.PlatformWeb:
		return webBody{}, nil
	case domain.PlatformAndroid:
		return nativeBody{rewriteURI: func(uri string) string { return uri }}, nil
	case domain.PlatformIOS:
		return nativeBody{rewriteURI: func(uri string) string {
			return strings.Replace(uri, "file://", "", 1)
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedPlatform, platform)
	}
}

// webBody sends the picker's file handle as is.
type webBody struct{}

func (webBody) Build(ctx context.Context, image domain.ImageDescriptor) (domain.UploadRequestBody, error) {
	if image.PlatformFile == nil {
		return domain.UploadRequestBody{}, fmt.Errorf("%s: %w", image.FileName, domain.ErrNoFileHandle)
	}
	data, err := readAll(ctx, image.PlatformFile)
	if err != nil {
		return domain.UploadRequestBody{}, fmt.Errorf("failed to read %s: %w", image.FileName, err)
	}
	return newBody(image.SourceURI, image, data), nil
}

// nativeBody rebuilds the {uri, name, type} triple and reads the bytes from
// the uri when it names a local file.
type nativeBody struct {
	rewriteURI func(string) string
}

func (b nativeBody) Build(ctx context.Context, image domain.ImageDescriptor) (domain.UploadRequestBody, error) {
	uri := b.rewriteURI(image.SourceURI)

	var opener domain.FileOpener
	if p, ok := localPath(uri); ok {
		opener = domain.OpenerFunc(func(context.Context) (io.ReadCloser, error) {
			return os.Open(p)
		})
	} else if image.PlatformFile != nil {
		opener = image.PlatformFile
	} else {
		return domain.UploadRequestBody{}, fmt.Errorf("%s: %w", image.FileName, domain.ErrNoFileHandle)
	}

	data, err := readAll(ctx, opener)
	if err != nil {
		return domain.UploadRequestBody{}, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return newBody(uri, image, data), nil
}

func localPath(uri string) (string, bool) {
	if uri == "" {
		return "", false
	}
	if rest, ok := strings.CutPrefix(uri, "file://"); ok {
		return filepath.FromSlash(rest), true
	}
	if strings.Contains(uri, "://") {
		return "", false
	}
	return filepath.FromSlash(uri), true
}

func readAll(ctx context.Context, opener domain.FileOpener) (data []byte, retErr error) {
	rc, err := opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()
	return io.ReadAll(rc)
}

func newBody(uri string, image domain.ImageDescriptor, data []byte) domain.UploadRequestBody {
	return domain.UploadRequestBody{
		URI:          uri,
		Name:         image.FileName,
		MimeType:     image.MimeType,
		Data:         data,
		Size:         int64(len(data)),
		OriginalSize: int64(len(data)),
	}
}
