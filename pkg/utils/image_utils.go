package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"go.uber.org/zap"
)

const (
	MinQuality  = 0.1
	QualityStep = 0.1
)

var (
	ErrInvalidQuality  = errors.New("quality must be in (0,1]")
	ErrThresholdNotMet = errors.New("image still above size threshold at minimum quality")
)

// Codec re-encodes an image blob at the given quality.
type Codec interface {
	Compress(ctx context.Context, data []byte, quality float64) ([]byte, error)
}

type JPEGCodec struct{}

func (JPEGCodec) Compress(ctx context.Context, data []byte, quality float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

type ImageProcessor struct {
	codec Codec
	log   *zap.Logger
}

func NewImageProcessor(codec Codec, log *zap.Logger) *ImageProcessor {
	if codec == nil {
		codec = JPEGCodec{}
	}
	return &ImageProcessor{codec: codec, log: log}
}

// CompressToFit re-encodes data until the result is at most threshold bytes,
// lowering quality by QualityStep after each oversized result and feeding the
// previous output back in. It stops at MinQuality; in that case the smallest
// output is returned along with ErrThresholdNotMet.
func (p *ImageProcessor) CompressToFit(ctx context.Context, data []byte, threshold int64, quality float64) ([]byte, float64, error) {
	if quality <= 0 || quality > 1 {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidQuality, quality)
	}

	current := data
	q := quality
	for {
		out, err := p.codec.Compress(ctx, current, q)
		if err != nil {
			return nil, q, fmt.Errorf("compress at quality %.1f: %w", q, err)
		}

		p.log.Debug("Image compressed",
			zap.Float64("quality", q),
			zap.Int("input_size", len(current)),
			zap.Int("size", len(out)))

		if int64(len(out)) <= threshold {
			return out, q, nil
		}

		next := roundQuality(q - QualityStep)
		if next < MinQuality {
			p.log.Warn("Compression floor reached",
				zap.Float64("quality", q),
				zap.Int("size", len(out)),
				zap.Int64("threshold", threshold))
			return out, q, ErrThresholdNotMet
		}

		current = out
		q = next
	}
}

func roundQuality(q float64) float64 {
	return math.Round(q*100) / 100
}
