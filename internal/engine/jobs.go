package engine

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle state of an async generation.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is a snapshot of an async generation.
type Job struct {
	ID          string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Params      Params     `json:"params"`
	Summary     *Summary   `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func (j *Job) finished() bool {
	return j.Status == JobSucceeded || j.Status == JobFailed
}

// jobTable tracks jobs, evicting the oldest finished ones past limit.
type jobTable struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	limit int
}

func newJobTable(limit int) *jobTable {
	return &jobTable{jobs: make(map[string]*Job), limit: limit}
}

func (t *jobTable) add(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[j.ID] = j
	t.order = append(t.order, j.ID)
	t.evict()
}

func (t *jobTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *jobTable) update(id string, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok {
		fn(j)
	}
	t.evict()
}

// get returns a copy so callers never race with workers.
func (t *jobTable) get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// evict must be called with mu held.
func (t *jobTable) evict() {
	for len(t.order) > t.limit {
		victim := -1
		for i, id := range t.order {
			if t.jobs[id].finished() {
				victim = i
				break
			}
		}
		if victim < 0 {
			return
		}
		delete(t.jobs, t.order[victim])
		t.order = append(t.order[:victim], t.order[victim+1:]...)
	}
}
