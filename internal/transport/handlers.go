package transport

import (
	"github.com/ds124wfegd/imagefilter/internal/service"
)

type ImageHandler struct {
	service service.ImageService
	stats   func() map[string]interface{}
}

func NewImageHandler(service service.ImageService) *ImageHandler {
	return &ImageHandler{service: service}
}

// WithStats attaches a stats source reported under "cleanup" by the health endpoint.
func (h *ImageHandler) WithStats(stats func() map[string]interface{}) *ImageHandler {
	h.stats = stats
	return h
}
