package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/imagefilter/internal/pkg/storage"

	"github.com/sirupsen/logrus"
)

// ArtifactCleanupWorker removes artifacts left behind by requests that never
// finished, e.g. after a crash. Artifacts younger than maxAge are never
// touched, so in-flight requests keep their files.
type ArtifactCleanupWorker struct {
	storage  storage.FileStorage
	interval time.Duration
	maxAge   time.Duration
}

func NewArtifactCleanupWorker(storage storage.FileStorage, interval, maxAge time.Duration) *ArtifactCleanupWorker {
	return &ArtifactCleanupWorker{
		storage:  storage,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (w *ArtifactCleanupWorker) Start(ctx context.Context) {
	logrus.Info("Artifact cleanup worker started")

	w.cleanupStaleArtifacts()

	if w.interval <= 0 {
		logrus.Info("Artifact cleanup worker has no interval, periodic sweep disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Artifact cleanup worker stopped")
			return
		case <-ticker.C:
			w.cleanupStaleArtifacts()
		}
	}
}

func (w *ArtifactCleanupWorker) cleanupStaleArtifacts() int {
	removed, err := w.storage.Sweep(w.maxAge)
	if err != nil {
		logrus.Errorf("Failed to sweep stale artifacts: %v", err)
	}
	if removed > 0 {
		logrus.Warnf("Removed %d stale artifact(s) older than %s", removed, w.maxAge)
	} else {
		logrus.Debug("No stale artifacts found")
	}
	return removed
}

// GetStats is reported by the health endpoint.
func (w *ArtifactCleanupWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type": "artifact_cleanup",
		"interval":    w.interval.String(),
		"max_age":     w.maxAge.String(),
	}
}
