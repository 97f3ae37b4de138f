package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/sirupsen/logrus"
)

// FilteredImage is an artifact ready to be sent. Release deletes it and is
// safe to call any number of times; only the first call touches the disk.
type FilteredImage struct {
	entity.Artifact

	once    sync.Once
	release func()
}

func (f *FilteredImage) Release() {
	if f == nil || f.release == nil {
		return
	}
	f.once.Do(f.release)
}

func (s *imageService) newFilteredImage(artifact entity.Artifact) *FilteredImage {
	return &FilteredImage{
		Artifact: artifact,
		release: func() {
			if err := s.storage.Delete(artifact.Name); err != nil {
				logrus.WithField("artifact", artifact.ID).Errorf("Failed to release artifact: %v", err)
			}
		},
	}
}

// FilterImage fetches and filters imageURL, then checks the artifact's real
// content type. Anything other than JPEG or PNG is deleted straight away and
// reported as entity.ErrUnsupportedFormat. On success the caller owns the
// returned image and must Release it.
func (s *imageService) FilterImage(ctx context.Context, imageURL string) (*FilteredImage, error) {
	artifact, err := s.processor.FilterFromURL(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	img := s.newFilteredImage(*artifact)

	res, err := s.sniffer.DetectFile(img.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		img.Release()
		return nil, entity.NewFilterError(entity.KindNotFound, imageURL, err)
	case err != nil && !errors.Is(err, entity.ErrUnknownFormat):
		img.Release()
		return nil, fmt.Errorf("sniff artifact %s: %w", img.ID, err)
	case err != nil || !res.Supported:
		img.Release()
		detected := res.MimeType
		if detected == "" {
			detected = "unknown"
		}
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, detected)
	}

	img.MimeType = res.MimeType
	return img, nil
}

// Open returns a reader over the artifact. A missing artifact is reported as
// a not-found filter error.
func (s *imageService) Open(img *FilteredImage) (io.ReadCloser, error) {
	rc, err := s.storage.Get(img.Name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, entity.NewFilterError(entity.KindNotFound, img.Path, err)
	}
	return rc, err
}

// Report publishes the outcome of one request. Failures are only logged.
func (s *imageService) Report(event entity.FilterEvent) {
	if s.producer == nil {
		return
	}
	if err := s.producer.SendMessage(event.RequestID, event); err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": event.RequestID,
			"status":     event.Status,
		}).Warnf("Failed to publish filter event: %v", err)
	}
}
