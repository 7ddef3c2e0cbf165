package pagination

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle stage of a render job. Transitions only
// move forward; a job never regresses.
type JobStatus uint8

const (
	JobPending JobStatus = iota
	JobProcessing
	JobReady
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobProcessing:
		return "processing"
	case JobReady:
		return "ready"
	case JobFailed:
		return "failed"
	}
	return "unknown"
}

// RenderJob is one accepted capture on its way through the pipeline.
type RenderJob struct {
	ID        uuid.UUID
	SourceURL string
	// Markup is the normalized markdown extracted at ingestion.
	Markup    string
	CreatedAt time.Time

	mu     sync.Mutex
	status JobStatus
}

// NewRenderJob creates a pending job with a fresh ID.
func NewRenderJob(sourceURL, markup string) *RenderJob {
	return &RenderJob{
		ID:        uuid.New(),
		SourceURL: sourceURL,
		Markup:    markup,
		CreatedAt: time.Now(),
	}
}

// Status returns the job's current lifecycle stage.
func (j *RenderJob) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Advance moves the job to s. It reports whether the transition was
// applied; moving backward is ignored.
func (j *RenderJob) Advance(s JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s <= j.status {
		return false
	}
	j.status = s
	return true
}
