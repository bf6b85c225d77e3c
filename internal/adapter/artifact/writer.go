package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/campus-assistant/pkg/metrics"
	"go.uber.org/zap"
)

type job struct {
	name string
	data []byte
}

// Writer persists debug artifacts from a bounded queue served by a fixed
// set of workers. Submissions never block; a full queue drops the artifact.
type Writer struct {
	dir     string
	workers int
	logger  *zap.Logger

	queue chan job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewWriter creates a writer storing files under dir.
func NewWriter(dir string, workers, queueSize int, logger *zap.Logger) *Writer {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		dir:     dir,
		workers: workers,
		logger:  logger,
		queue:   make(chan job, queueSize),
	}
}

// Start creates the artifact directory and launches the workers.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	w.started = true
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}
	return nil
}

// Stop rejects new artifacts, drains the queue and waits for the workers.
func (w *Writer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Writer) SaveScreenshot(name string, png []byte) {
	w.submit(job{name: name, data: png})
}

// SaveJSON encodes v immediately so later mutations are not captured.
func (w *Writer) SaveJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.logger.Warn("failed to encode artifact", zap.String("name", name), zap.Error(err))
		return
	}
	w.submit(job{name: name, data: data})
}

func (w *Writer) submit(j job) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped || !w.started {
		metrics.ArtifactsDropped.Inc()
		w.logger.Debug("artifact writer not running, dropping", zap.String("name", j.name))
		return
	}
	select {
	case w.queue <- j:
		metrics.ArtifactsInQueue.Inc()
	default:
		metrics.ArtifactsDropped.Inc()
		w.logger.Warn("artifact queue full, dropping", zap.String("name", j.name))
	}
}

func (w *Writer) worker() {
	defer w.wg.Done()
	for j := range w.queue {
		metrics.ArtifactsInQueue.Dec()
		w.write(j)
	}
}

func (w *Writer) write(j job) {
	// Names come from callers; never let them escape the directory.
	base := filepath.Base(j.name)
	path := filepath.Join(w.dir, base)

	// Each job gets its own temp file; two workers may hold the same name.
	f, err := os.CreateTemp(w.dir, base+".*.tmp")
	if err != nil {
		w.logger.Error("failed to create artifact", zap.String("path", path), zap.Error(err))
		return
	}
	tmp := f.Name()
	_, err = f.Write(j.data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, 0o644)
	}
	if err != nil {
		w.logger.Error("failed to write artifact", zap.String("path", path), zap.Error(err))
		_ = os.Remove(tmp)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		w.logger.Error("failed to move artifact into place", zap.String("path", path), zap.Error(err))
		_ = os.Remove(tmp)
		return
	}
	w.logger.Debug("saved artifact", zap.String("path", path), zap.Int("bytes", len(j.data)))
}
