package service

import (
	"context"
	"io"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/ds124wfegd/imagefilter/internal/pkg/kafka"
	"github.com/ds124wfegd/imagefilter/internal/pkg/processor"
	"github.com/ds124wfegd/imagefilter/internal/pkg/sniffer"
	"github.com/ds124wfegd/imagefilter/internal/pkg/storage"
)

type ImageService interface {
	FilterImage(ctx context.Context, imageURL string) (*FilteredImage, error)
	Open(img *FilteredImage) (io.ReadCloser, error)
	Report(event entity.FilterEvent)
}

type imageService struct {
	storage   storage.FileStorage
	processor processor.ImageProcessor
	sniffer   sniffer.Sniffer
	producer  kafka.Producer
}

func NewImageService(storage storage.FileStorage, processor processor.ImageProcessor, sniffer sniffer.Sniffer, producer kafka.Producer) ImageService {
	return &imageService{
		storage:   storage,
		processor: processor,
		sniffer:   sniffer,
		producer:  producer,
	}
}
