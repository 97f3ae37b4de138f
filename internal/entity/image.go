package entity

import "time"

type FilterRequest struct {
	ImageURL string `form:"image_url" json:"image_url"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// Artifact is a filtered image written to the temp area. It belongs to the
// request that produced it and must not outlive that request.
type Artifact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
}

type FilterOptions struct {
	Width     int   `json:"width"`
	Height    int   `json:"height"`
	Quality   int   `json:"quality"`
	Grayscale bool  `json:"grayscale"`
	MaxPixels int64 `json:"max_pixels"`
}

const (
	StatusFiltered      = "filtered"
	StatusRejected      = "rejected"
	StatusNotFound      = "not_found"
	StatusUnprocessable = "unprocessable"
	StatusFailed        = "failed"
)

// FilterEvent is published once per handled request.
type FilterEvent struct {
	RequestID  string    `json:"request_id"`
	ImageURL   string    `json:"image_url"`
	Status     string    `json:"status"`
	HTTPStatus int       `json:"http_status"`
	MimeType   string    `json:"mime_type,omitempty"`
	Size       int64     `json:"size,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}
