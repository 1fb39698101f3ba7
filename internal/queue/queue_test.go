package queue

import (
	"testing"

	"github.com/snapocr/snapocr/internal/model"
	"github.com/snapocr/snapocr/internal/store"
)

func testItem(id string) *Item {
	return &Item{
		Capture: &model.ScreenCapture{ID: id, Status: model.StatusCaptured},
	}
}

func testStore(t *testing.T) *store.ProjectStore {
	t.Helper()
	s, err := store.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func TestQueue_FIFO(t *testing.T) {
	q := New()
	q.Enqueue(testItem("a"))
	q.Enqueue(testItem("b"))
	q.Enqueue(testItem("c"))

	for _, want := range []string{"a", "b", "c"} {
		item := q.tryDequeue()
		if item == nil {
			t.Fatalf("tryDequeue returned nil, want %s", want)
		}
		if item.Capture.ID != want {
			t.Errorf("dequeued %s, want %s", item.Capture.ID, want)
		}
		q.finish()
	}
	if item := q.tryDequeue(); item != nil {
		t.Errorf("tryDequeue on empty queue = %v, want nil", item)
	}
}

func TestEnqueueCapture_MarksProcessing(t *testing.T) {
	q := New()
	item := testItem("a")
	item.Project = &model.Project{ID: "p1"}
	EnqueueCapture(testStore(t), q, item)
	if item.Capture.Status != model.StatusProcessing {
		t.Errorf("status = %q, want %q", item.Capture.Status, model.StatusProcessing)
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}

func TestQueue_DepthCountsInFlight(t *testing.T) {
	q := New()
	if q.Depth() != 0 || q.IsProcessing() {
		t.Fatal("new queue should be idle")
	}

	q.Enqueue(testItem("a"))
	q.Enqueue(testItem("b"))
	if q.Depth() != 2 || q.Len() != 2 {
		t.Errorf("Depth = %d, Len = %d, want 2, 2", q.Depth(), q.Len())
	}

	q.tryDequeue()
	// One queued, one in flight.
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
	if q.Depth() != 2 {
		t.Errorf("Depth = %d, want 2 (in-flight counted)", q.Depth())
	}

	q.finish()
	if q.Depth() != 1 {
		t.Errorf("Depth = %d, want 1 after finish", q.Depth())
	}

	q.tryDequeue()
	q.finish()
	if q.IsProcessing() {
		t.Error("queue should be idle after draining")
	}
}

func TestRequeuePending(t *testing.T) {
	p := &model.Project{
		ID: "p1",
		Sessions: []*model.CaptureSession{
			{
				ID: "s1",
				Captures: []*model.ScreenCapture{
					{ID: "done", Status: model.StatusCompleted},
					{ID: "fresh", Status: model.StatusCaptured},
					{ID: "failed", Status: model.StatusFailed},
					{ID: "busy", Status: model.StatusProcessing},
				},
			},
			{
				ID: "s2",
				Captures: []*model.ScreenCapture{
					{ID: "fresh2", Status: model.StatusCaptured},
				},
			},
		},
	}

	q := New()
	n := RequeuePending(testStore(t), q, p)
	if n != 3 {
		t.Errorf("RequeuePending = %d, want 3", n)
	}

	var ids []string
	for {
		item := q.tryDequeue()
		if item == nil {
			break
		}
		if item.Capture.Status != model.StatusProcessing {
			t.Errorf("capture %s status = %q, want %q", item.Capture.ID, item.Capture.Status, model.StatusProcessing)
		}
		ids = append(ids, item.Capture.ID)
		q.finish()
	}
	want := []string{"fresh", "failed", "fresh2"}
	if len(ids) != len(want) {
		t.Fatalf("dequeued %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("order = %v, want %v", ids, want)
			break
		}
	}
}
