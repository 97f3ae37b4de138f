package transport

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/ds124wfegd/imagefilter/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	UsageHint = "try GET /filteredimage?image_url={{}}"

	msgImageURLRequired  = "400 Bad Request - Image URL is required"
	msgUnsupportedFormat = "Invalid image file. Only JPG, JPEG and PNG are allowed."
	msgUndecodableImage  = "Invalid image file. Only supported image formats are allowed."
	msgImageNotFound     = "Image not found"
	msgProcessingFailure = "An error occurred while processing the image"
)

// FilteredImage serves GET /filteredimage?image_url=<url>.
//
// The artifact produced for the request is released by a deferred call, so
// it is deleted after the body has been written, on client aborts, and on
// every error path after it was created.
func (h *ImageHandler) FilteredImage(c *gin.Context) {
	var req entity.FilterRequest
	if err := c.ShouldBindQuery(&req); err != nil || strings.TrimSpace(req.ImageURL) == "" {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"error":      entity.ErrImageURLRequired,
		}).Warn("Rejected filter request")
		c.String(http.StatusBadRequest, msgImageURLRequired)
		return
	}
	imageURL := strings.TrimSpace(req.ImageURL)

	start := time.Now()
	event := entity.FilterEvent{
		RequestID: c.GetString(middleware.RequestIDKey),
		ImageURL:  imageURL,
	}
	defer func() {
		event.HTTPStatus = c.Writer.Status()
		event.DurationMs = time.Since(start).Milliseconds()
		event.Time = time.Now()
		h.service.Report(event)
	}()

	img, err := h.service.FilterImage(c.Request.Context(), imageURL)
	if err != nil {
		event.Status = h.fail(c, imageURL, err)
		return
	}
	defer img.Release()

	body, err := h.service.Open(img)
	if err != nil {
		event.Status = h.fail(c, imageURL, err)
		return
	}
	defer body.Close()

	event.Status = entity.StatusFiltered
	event.MimeType = img.MimeType
	event.Size = img.Size

	c.DataFromReader(http.StatusOK, img.Size, img.MimeType, body, map[string]string{
		"Cache-Control": "no-store",
	})
	if len(c.Errors) > 0 {
		logrus.WithFields(logrus.Fields{
			"request_id": event.RequestID,
			"image_url":  imageURL,
		}).Warnf("Response stream interrupted: %v", c.Errors.Last())
	}
}

// fail writes the JSON error for err and returns the event status.
func (h *ImageHandler) fail(c *gin.Context, imageURL string, err error) string {
	entry := logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"image_url":  imageURL,
		"kind":       entity.KindOf(err).String(),
	})

	var (
		code    int
		message string
		status  string
	)
	switch {
	case errors.Is(err, entity.ErrUnsupportedFormat):
		code, message, status = http.StatusUnprocessableEntity, msgUnsupportedFormat, entity.StatusRejected
	case errors.Is(err, entity.ErrImageNotFound):
		code, message, status = http.StatusNotFound, msgImageNotFound, entity.StatusNotFound
	case errors.Is(err, entity.ErrUndecodableImage):
		code, message, status = http.StatusUnprocessableEntity, msgUndecodableImage, entity.StatusUnprocessable
	default:
		code, message, status = http.StatusInternalServerError, msgProcessingFailure, entity.StatusFailed
	}

	if code >= http.StatusInternalServerError {
		entry.Errorf("Failed to filter image: %v", err)
	} else {
		entry.Warnf("Image rejected: %v", err)
	}

	c.JSON(code, entity.ErrorResponse{Message: message})
	return status
}

func (h *ImageHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, UsageHint)
}

func (h *ImageHandler) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"service": "image-filter",
	}
	if h.stats != nil {
		resp["cleanup"] = h.stats()
	}
	c.JSON(http.StatusOK, resp)
}
