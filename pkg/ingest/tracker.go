// pkg/ingest/tracker.go
package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// UploadState is the lifecycle stage of one tracked upload.
type UploadState string

const (
	UploadUploading  UploadState = "uploading"
	UploadProcessing UploadState = "processing"
	UploadCompleted  UploadState = "completed"
	UploadFailed     UploadState = "failed"
)

// UploadStatus is a point-in-time view of one upload's progress.
type UploadStatus struct {
	ID        string      `json:"id"`
	Filename  string      `json:"filename"`
	State     UploadState `json:"state"`
	Progress  int         `json:"progress"`
	Error     string      `json:"error,omitempty"`
	DatasetID string      `json:"dataset_id,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// UploadTracker holds in-memory progress for uploads in flight. State is
// process-local and vanishes on restart; the datasets table is the
// durable record.
type UploadTracker struct {
	mu       sync.RWMutex
	uploads  map[string]*UploadStatus
	onChange func(UploadStatus)
}

// NewUploadTracker creates an empty tracker. onChange, when non-nil, is
// invoked after every status mutation with a copy of the new status.
func NewUploadTracker(onChange func(UploadStatus)) *UploadTracker {
	return &UploadTracker{
		uploads:  make(map[string]*UploadStatus),
		onChange: onChange,
	}
}

// Begin registers a new upload and returns its tracking id.
func (t *UploadTracker) Begin(filename string) string {
	id := uuid.New().String()
	now := time.Now().UTC()
	status := &UploadStatus{
		ID:        id,
		Filename:  filename,
		State:     UploadUploading,
		Progress:  0,
		StartedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	t.uploads[id] = status
	t.mu.Unlock()

	t.notify(*status)
	return id
}

// SetProgress updates the progress percentage and state of an upload.
func (t *UploadTracker) SetProgress(id string, state UploadState, progress int) {
	t.mutate(id, func(s *UploadStatus) {
		s.State = state
		s.Progress = progress
	})
}

// Complete marks an upload finished and records its dataset id.
func (t *UploadTracker) Complete(id, datasetID string) {
	t.mutate(id, func(s *UploadStatus) {
		s.State = UploadCompleted
		s.Progress = 100
		s.DatasetID = datasetID
	})
}

// Fail marks an upload failed with the given message.
func (t *UploadTracker) Fail(id, message string) {
	t.mutate(id, func(s *UploadStatus) {
		s.State = UploadFailed
		s.Error = message
	})
}

// Get returns a copy of one upload's status.
func (t *UploadTracker) Get(id string) (UploadStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.uploads[id]
	if !ok {
		return UploadStatus{}, false
	}
	return *s, true
}

// List returns copies of every tracked upload, newest first.
func (t *UploadTracker) List() []UploadStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]UploadStatus, 0, len(t.uploads))
	for _, s := range t.uploads {
		out = append(out, *s)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartedAt.After(out[i].StartedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (t *UploadTracker) mutate(id string, fn func(*UploadStatus)) {
	t.mu.Lock()
	s, ok := t.uploads[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	fn(s)
	s.UpdatedAt = time.Now().UTC()
	snapshot := *s
	t.mu.Unlock()

	t.notify(snapshot)
}

func (t *UploadTracker) notify(s UploadStatus) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
