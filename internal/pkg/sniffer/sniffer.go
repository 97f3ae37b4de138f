package sniffer

import (
	"errors"
	"io"
	"os"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/gabriel-vasile/mimetype"
)

// headSize is how many leading bytes are inspected. It matches the read limit
// mimetype uses by default.
const headSize = 3072

var supported = []string{"image/jpeg", "image/png"}

type Result struct {
	MimeType  string
	Supported bool
}

type Sniffer interface {
	Detect(data []byte) (Result, error)
	DetectFile(path string) (Result, error)
}

type contentSniffer struct{}

func New() Sniffer {
	return contentSniffer{}
}

// Detect identifies data by its content. Empty or unrecognised input returns
// entity.ErrUnknownFormat.
func (contentSniffer) Detect(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, entity.ErrUnknownFormat
	}

	m := mimetype.Detect(data)
	if m.Is("application/octet-stream") {
		return Result{MimeType: m.String()}, entity.ErrUnknownFormat
	}

	res := Result{MimeType: m.String()}
	for _, s := range supported {
		if m.Is(s) {
			res.Supported = true
			break
		}
	}
	return res, nil
}

func (s contentSniffer) DetectFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Result{}, err
	}
	return s.Detect(head[:n])
}
