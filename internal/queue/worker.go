package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/snapocr/snapocr/internal/config"
	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/naming"
	"github.com/snapocr/snapocr/internal/ocr"
	"github.com/snapocr/snapocr/internal/store"
)

// settleDelay is how long the worker waits after writing the text sidecar
// before renaming the image, giving filesystem watchers time to settle.
const settleDelay = 100 * time.Millisecond

// Notifier receives worker progress events. Implementations must be safe to
// call from the worker goroutine.
type Notifier interface {
	Status(message string)
	Success(capture *model.ScreenCapture, words int)
	Error(capture *model.ScreenCapture, err error)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Status(string) {}

func (NopNotifier) Success(*model.ScreenCapture, int) {}

func (NopNotifier) Error(*model.ScreenCapture, error) {}

// Worker drains the queue with a single goroutine. When the queue is empty
// it sleeps for the configured poll delay. Cancellation is observed only
// between items and during the idle sleep; an item already dequeued is
// always finished.
type Worker struct {
	queue    *Queue
	engine   ocr.Engine
	projects *store.ProjectStore
	cfg      *config.Config
	notifier Notifier
	logger   *slog.Logger

	stop   context.CancelFunc
	doneWG sync.WaitGroup
}

// NewWorker wires a worker to its queue and collaborators. A nil notifier
// is replaced with NopNotifier.
func NewWorker(q *Queue, engine ocr.Engine, projects *store.ProjectStore, cfg *config.Config, notifier Notifier, logger *slog.Logger) *Worker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Worker{
		queue:    q,
		engine:   engine,
		projects: projects,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
	}
}

// Start launches the worker goroutine. It runs until ctx is canceled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.stop = context.WithCancel(ctx)
	w.doneWG.Add(1)
	go func() {
		defer w.doneWG.Done()
		w.run(ctx)
	}()
}

// Stop cancels the worker and waits for it to exit. The in-flight item, if
// any, is completed first.
func (w *Worker) Stop() {
	if w.stop != nil {
		w.stop()
	}
	w.doneWG.Wait()
}

// Drain blocks until the queue is empty and nothing is in flight, or ctx
// expires.
func (w *Worker) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !w.queue.IsProcessing() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	delay := w.cfg.OCR.QueueDelay()
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	for {
		if ctx.Err() != nil {
			return
		}
		item := w.queue.tryDequeue()
		if item == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		w.process(ctx, item)
		w.queue.finish()
		w.notifier.Status(fmt.Sprintf("%d items remaining", w.queue.Len()))
	}
}

// process runs one item end to end. Failures mark the capture Failed and
// never stop the loop.
func (w *Worker) process(ctx context.Context, item *Item) {
	capture := item.Capture
	w.logger.Debug("processing capture", "capture_id", capture.ID, "file", capture.FileName)

	result, err := w.recognize(ctx, capture)
	if err != nil {
		w.projects.Mutate(item.Project.ID, func() {
			capture.Status = model.StatusFailed
		})
		if saveErr := w.projects.SaveProject(item.Project); saveErr != nil {
			w.logger.Error("failed to persist failure status", "capture_id", capture.ID, "error", saveErr)
		}
		w.logger.Warn("ocr failed", "capture_id", capture.ID, "error", err)
		w.notifier.Error(capture, err)
		return
	}

	w.writeSidecar(capture, result)
	time.Sleep(settleDelay)
	w.applySmartName(item.Project.ID, capture, result)

	if err := w.projects.UpdateCaptureOCR(item.Project, item.Session, capture, result); err != nil {
		w.logger.Error("failed to persist ocr result", "capture_id", capture.ID, "error", err)
		w.notifier.Error(capture, err)
		return
	}

	w.notifier.Success(capture, len(strings.Fields(result.Text)))
}

func (w *Worker) recognize(ctx context.Context, capture *model.ScreenCapture) (*model.OCRResult, error) {
	data, err := os.ReadFile(capture.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read capture image: %w", err)
	}
	return w.engine.Recognize(ctx, data)
}

// writeSidecar saves the recognized text next to the image as
// <base>_ocr.txt. Sidecar failures are logged but do not fail the item.
func (w *Worker) writeSidecar(capture *model.ScreenCapture, result *model.OCRResult) {
	base := strings.TrimSuffix(capture.FilePath, filepath.Ext(capture.FilePath))
	path := base + "_ocr.txt"
	if err := os.WriteFile(path, []byte(result.Text), 0o600); err != nil {
		w.logger.Warn("failed to write text sidecar", "path", path, "error", err)
	}
}

// applySmartName renames the image (and sidecar) to a name derived from the
// recognized text. The rename is skipped when disabled, when the derived
// name matches the current one, or when the destination already exists.
// Capture field updates go through the store lock; concurrent saves marshal
// the same objects.
func (w *Worker) applySmartName(projectID string, capture *model.ScreenCapture, result *model.OCRResult) {
	if !w.cfg.Naming.UseSmartFilenames {
		return
	}
	ext := strings.TrimPrefix(filepath.Ext(capture.FilePath), ".")
	name := naming.GenerateSmartFilename(result, capture.Timestamp, ext, w.cfg.Naming)
	if name == "" || name == capture.FileName {
		return
	}

	dir := filepath.Dir(capture.FilePath)
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		w.logger.Debug("smart filename already taken", "name", name)
		return
	}
	if err := os.Rename(capture.FilePath, dest); err != nil {
		w.logger.Warn("failed to apply smart filename", "capture_id", capture.ID, "error", err)
		return
	}

	oldBase := strings.TrimSuffix(capture.FilePath, filepath.Ext(capture.FilePath))
	newBase := strings.TrimSuffix(dest, filepath.Ext(dest))
	if err := os.Rename(oldBase+"_ocr.txt", newBase+"_ocr.txt"); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("failed to rename text sidecar", "capture_id", capture.ID, "error", err)
	}

	thumbRenamed := false
	if capture.ThumbnailPath != "" {
		if err := os.Rename(capture.ThumbnailPath, newBase+"_thumb.png"); err == nil {
			thumbRenamed = true
		} else if !os.IsNotExist(err) {
			w.logger.Warn("failed to rename thumbnail", "capture_id", capture.ID, "error", err)
		}
	}

	w.projects.Mutate(projectID, func() {
		if thumbRenamed {
			capture.ThumbnailPath = newBase + "_thumb.png"
		}
		capture.FilePath = dest
		capture.FileName = name
	})
}

// RequeuePending enqueues every capture in the project that is not already
// Completed or Processing, oldest first. Used to resume work after a crash
// or to re-run failed captures.
func RequeuePending(s *store.ProjectStore, q *Queue, p *model.Project) int {
	n := 0
	for _, session := range p.Sessions {
		for _, c := range session.Captures {
			if c.Status == model.StatusCompleted || c.Status == model.StatusProcessing {
				continue
			}
			EnqueueCapture(s, q, &Item{Project: p, Session: session, Capture: c})
			n++
		}
	}
	return n
}
