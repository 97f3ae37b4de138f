package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/ds124wfegd/imagefilter/internal/entity"
	"github.com/ds124wfegd/imagefilter/internal/pkg/sniffer"
	"github.com/ds124wfegd/imagefilter/internal/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writingProcessor stores the given bytes as an artifact without decoding them
type writingProcessor struct {
	storage storage.FileStorage
	data    []byte
	err     error
}

func (p *writingProcessor) FilterFromURL(ctx context.Context, imageURL string) (*entity.Artifact, error) {
	if p.err != nil {
		return nil, p.err
	}
	id := uuid.New().String()
	name := storage.ArtifactPrefix + id + ".bin"
	f, err := p.storage.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(p.data); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &entity.Artifact{ID: id, Name: name, Path: p.storage.Path(name), Size: int64(len(p.data))}, nil
}

type recordingProducer struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (p *recordingProducer) SendMessage(key string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, message)
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, data []byte, procErr error) (ImageService, storage.FileStorage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	proc := &writingProcessor{storage: store, data: data, err: procErr}
	return NewImageService(store, proc, sniffer.New(), &recordingProducer{}), store, dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFilterImageSuccess(t *testing.T) {
	svc, store, dir := newTestService(t, pngBytes(t), nil)

	img, err := svc.FilterImage(context.Background(), "http://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.True(t, store.Exists(img.Name))

	rc, err := svc.Open(img)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pngBytes(t), data)

	img.Release()
	assert.False(t, store.Exists(img.Name))
	img.Release()
	assert.False(t, store.Exists(img.Name))
	assertEmptyDir(t, dir)
}

func TestFilterImageRejectsUnsupportedContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "html page", data: []byte("<!DOCTYPE html><html><body>hi</body></html>")},
		{name: "empty file", data: []byte{}},
		{name: "binary noise", data: []byte{0x00, 0x9f, 0x13, 0x37, 0xfe, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, dir := newTestService(t, tt.data, nil)

			img, err := svc.FilterImage(context.Background(), "http://example.com/page")
			assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
			assert.Nil(t, img)
			assertEmptyDir(t, dir)
		})
	}
}

func TestFilterImagePassesProcessorErrors(t *testing.T) {
	procErr := entity.NewFilterError(entity.KindNotFound, "http://example.com/x", errors.New("404"))
	svc, _, dir := newTestService(t, nil, procErr)

	img, err := svc.FilterImage(context.Background(), "http://example.com/x")
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
	assert.Nil(t, img)
	assertEmptyDir(t, dir)
}

func TestOpenMissingArtifact(t *testing.T) {
	svc, store, _ := newTestService(t, pngBytes(t), nil)

	img, err := svc.FilterImage(context.Background(), "http://example.com/a.png")
	require.NoError(t, err)
	require.NoError(t, store.Delete(img.Name))

	_, err = svc.Open(img)
	assert.ErrorIs(t, err, entity.ErrImageNotFound)
	img.Release()
}

func TestReleaseConcurrentCallsRunOnce(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	img := &FilteredImage{release: func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)

	var nilImage *FilteredImage
	assert.NotPanics(t, nilImage.Release)
}

func TestReport(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	svc := NewImageService(nil, nil, nil, producer)

	svc.Report(entity.FilterEvent{RequestID: "r1", Status: entity.StatusFiltered})

	require.Len(t, producer.events, 1)
	assert.Equal(t, "r1", producer.events[0].(entity.FilterEvent).RequestID)

	assert.NotPanics(t, func() {
		NewImageService(nil, nil, nil, nil).Report(entity.FilterEvent{})
	})
}
