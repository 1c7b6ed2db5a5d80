package http

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// RefreshJob 在内存中跟踪一次后台刷新的进度。
type RefreshJob struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Symbols   []string  `json:"symbols"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
}

func (j *RefreshJob) copy() RefreshJob {
	if j == nil {
		return RefreshJob{}
	}
	out := *j
	out.Symbols = append([]string{}, j.Symbols...)
	return out
}

type jobTracker struct {
	mu   sync.Mutex
	jobs map[string]*RefreshJob
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[string]*RefreshJob)}
}

func (t *jobTracker) create(symbols []string) RefreshJob {
	now := time.Now()
	job := &RefreshJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Symbols:   append([]string{}, symbols...),
		StartedAt: now,
		UpdatedAt: now,
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return job.copy()
}

func (t *jobTracker) setStatus(id, status, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Message = message
	job.UpdatedAt = time.Now()
}

func (t *jobTracker) snapshot(id string) (RefreshJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return RefreshJob{}, false
	}
	return job.copy(), true
}

func (t *jobTracker) list() []RefreshJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RefreshJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, job.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}
