// Package queue implements the OCR processing queue and its background
// worker. Captures enter in arrival order and a single worker drains them,
// so at most one recognition runs at a time.
package queue

import (
	"sync"

	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/store"
)

// Item is one queued unit of OCR work. It carries the owning project and
// session so the worker can persist results without extra lookups.
type Item struct {
	Project *model.Project
	Session *model.CaptureSession
	Capture *model.ScreenCapture
}

// Queue is an unbounded FIFO of OCR items. Enqueue never blocks.
type Queue struct {
	mu    sync.Mutex
	items []*Item

	processing bool
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends an item without touching the capture. Use EnqueueCapture
// unless the caller has already marked the capture Processing.
func (q *Queue) Enqueue(item *Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// EnqueueCapture marks the capture Processing under the project's store lock
// and queues it. A concurrent save may be marshaling the capture, so the
// status flip must not happen bare.
func EnqueueCapture(s *store.ProjectStore, q *Queue, item *Item) {
	s.Mutate(item.Project.ID, func() {
		item.Capture.Status = model.StatusProcessing
	})
	q.Enqueue(item)
}

// tryDequeue removes and returns the oldest item, or nil if the queue is
// empty. Dequeuing also flips the processing flag so Depth and IsProcessing
// keep counting the in-flight item.
func (q *Queue) tryDequeue() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.processing = true
	return item
}

// finish clears the processing flag after an item completes or fails.
func (q *Queue) finish() {
	q.mu.Lock()
	q.processing = false
	q.mu.Unlock()
}

// Len returns the number of queued items, excluding any item in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Depth returns queued items plus the in-flight item, if any.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if q.processing {
		n++
	}
	return n
}

// IsProcessing reports whether any work is queued or in flight.
func (q *Queue) IsProcessing() bool {
	return q.Depth() > 0
}
