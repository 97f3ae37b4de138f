package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/ds124wfegd/imagefilter/internal/pkg/fetcher"
	"github.com/ds124wfegd/imagefilter/internal/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ImageProcessor downloads an image, filters it and writes the result to the
// storage area as a new artifact.
type ImageProcessor interface {
	FilterFromURL(ctx context.Context, imageURL string) (*entity.Artifact, error)
}

type imageProcessor struct {
	fetcher fetcher.Fetcher
	storage storage.FileStorage
	options entity.FilterOptions
}

func NewImageProcessor(f fetcher.Fetcher, s storage.FileStorage, opts entity.FilterOptions) ImageProcessor {
	return &imageProcessor{fetcher: f, storage: s, options: opts}
}

func (p *imageProcessor) FilterFromURL(ctx context.Context, imageURL string) (*entity.Artifact, error) {
	data, err := p.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	img, format, err := p.decode(data)
	if err != nil {
		return nil, entity.NewFilterError(entity.KindDecode, imageURL, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, entity.NewFilterError(entity.KindTransport, imageURL, err)
	}

	filtered := p.apply(img)

	artifact, err := p.save(filtered, format)
	if err != nil {
		return nil, fmt.Errorf("save filtered image: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"artifact": artifact.ID,
		"format":   format.String(),
		"size":     artifact.Size,
	}).Debug("Filtered image written")

	return artifact, nil
}

// decode reads the header first: the declared dimensions are checked against
// MaxPixels before any pixel buffer is allocated, and the source format is
// kept so the artifact can be written back in the same format.
func (p *imageProcessor) decode(data []byte) (image.Image, imaging.Format, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}

	if limit := p.options.MaxPixels; limit > 0 && int64(cfg.Width)*int64(cfg.Height) > limit {
		return nil, 0, fmt.Errorf("%w: %dx%d", entity.ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return nil, 0, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, err
	}
	return img, format, nil
}

func (p *imageProcessor) apply(img image.Image) image.Image {
	return Filter(img, p.options)
}

// Filter resizes img to the configured box and optionally drops its colour.
// A zero width or height keeps the aspect ratio; both zero skips resizing.
func Filter(img image.Image, opts entity.FilterOptions) image.Image {
	out := img
	if opts.Width > 0 || opts.Height > 0 {
		out = imaging.Resize(out, opts.Width, opts.Height, imaging.Lanczos)
	}
	if opts.Grayscale {
		out = imaging.Grayscale(out)
	}
	return out
}

func (p *imageProcessor) save(img image.Image, format imaging.Format) (*entity.Artifact, error) {
	id := uuid.New().String()
	name := storage.ArtifactPrefix + id + "." + extension(format)

	file, err := p.storage.Create(name)
	if err != nil {
		return nil, err
	}

	var encodeOpts []imaging.EncodeOption
	if p.options.Quality > 0 {
		encodeOpts = append(encodeOpts, imaging.JPEGQuality(p.options.Quality))
	}

	var size int64
	err = imaging.Encode(file, img, format, encodeOpts...)
	if err == nil {
		var info os.FileInfo
		if info, err = file.Stat(); err == nil {
			size = info.Size()
		}
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if derr := p.storage.Delete(name); derr != nil {
			logrus.Errorf("Failed to remove partial artifact %s: %v", name, derr)
		}
		return nil, err
	}

	return &entity.Artifact{
		ID:   id,
		Name: name,
		Path: p.storage.Path(name),
		Size: size,
	}, nil
}

func extension(f imaging.Format) string {
	if f == imaging.JPEG {
		return "jpg"
	}
	return strings.ToLower(f.String())
}
