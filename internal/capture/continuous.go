package capture

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
	"github.com/snapocr/snapocr/internal/queue"
	"github.com/snapocr/snapocr/internal/store"
)

// ContinuousRunner repeatedly captures a locked screen region on a fixed
// interval, saving and enqueueing each capture for OCR. The region cannot
// change while the runner is active. Stopping the runner leaves already
// queued captures in the OCR queue.
type ContinuousRunner struct {
	capturer Capturer
	projects *store.ProjectStore
	queue    *queue.Queue
	cfg      *config.Config
	logger   *slog.Logger

	mu     sync.Mutex
	region *model.LockedRegion
	cancel context.CancelFunc
	done   chan struct{}
}

// NewContinuousRunner wires a runner to its collaborators.
func NewContinuousRunner(capturer Capturer, projects *store.ProjectStore, q *queue.Queue, cfg *config.Config, logger *slog.Logger) *ContinuousRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &ContinuousRunner{
		capturer: capturer,
		projects: projects,
		queue:    q,
		cfg:      cfg,
		logger:   logger,
	}
}

// Active reports whether continuous capture is running.
func (r *ContinuousRunner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.region != nil
}

// Region returns a copy of the locked region, or nil when inactive.
func (r *ContinuousRunner) Region() *model.LockedRegion {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.region == nil {
		return nil
	}
	out := *r.region
	return &out
}

// Start locks the region and begins capturing every interval. It fails if a
// run is already active or the region is invalid.
func (r *ContinuousRunner) Start(ctx context.Context, p *model.Project, session *model.CaptureSession, region Region, interval time.Duration) error {
	if !region.Valid() {
		return fmt.Errorf("continuous capture requires a region with positive dimensions")
	}
	if interval <= 0 {
		interval = time.Second
	}

	r.mu.Lock()
	if r.region != nil {
		r.mu.Unlock()
		return fmt.Errorf("continuous capture already active")
	}
	r.region = &model.LockedRegion{
		X:        region.X,
		Y:        region.Y,
		Width:    region.Width,
		Height:   region.Height,
		LockedAt: time.Now(),
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx, p, session, region, interval)
	return nil
}

// Stop unlocks the region and halts capturing. Queued OCR work is untouched.
func (r *ContinuousRunner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	r.mu.Lock()
	r.region = nil
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()
}

func (r *ContinuousRunner) run(ctx context.Context, p *model.Project, session *model.CaptureSession, region Region, interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.captureOnce(p, session, region); err != nil {
			// A failed tick is logged and skipped; the run continues.
			r.logger.Warn("continuous capture tick failed", "error", err)
			continue
		}

		r.mu.Lock()
		if r.region != nil {
			r.region.CaptureCount++
		}
		r.mu.Unlock()
	}
}

func (r *ContinuousRunner) captureOnce(p *model.Project, session *model.CaptureSession, region Region) error {
	shot, err := r.capturer.CaptureRegion(region)
	if err != nil {
		return err
	}

	ext := Extension(r.cfg.Capture)
	name := naming.InitialFilename(shot.Timestamp, ext, r.cfg.Naming)
	dir := r.projects.CapturesDir(p.ID)
	path := filepath.Join(dir, name)
	// Sub-second intervals can produce colliding timestamp names.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, i, ext))
	}
	if err := SaveImage(shot.Image, path, r.cfg.Capture); err != nil {
		return err
	}

	c, err := r.projects.AddCapture(p, session, path)
	if err != nil {
		return err
	}
	queue.EnqueueCapture(r.projects, r.queue, &queue.Item{Project: p, Session: session, Capture: c})
	return nil
}
