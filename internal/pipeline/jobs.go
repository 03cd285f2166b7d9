package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/placeholder"
)

// JobStatus represents the state of a merge job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// Job renders one document once per placeholder row.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Document string `json:"document"`
	Engine   string `json:"engine,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	rows     []placeholder.Collection
	results  []RowResult
	errors   []string
	done     chan struct{}
	doneOnce sync.Once
}

// Progress tracks processing progress.
type Progress struct {
	TotalRows    int      `json:"total_rows"`
	RowsRendered int      `json:"rows_rendered"`
	RowsFailed   int      `json:"rows_failed"`
	Errors       []string `json:"errors"`
}

// RowResult is the outcome of rendering one row. A failed row has no
// artifacts.
type RowResult struct {
	Row       int                  `json:"row"`
	Done      bool                 `json:"done"`
	Artifacts []generator.Artifact `json:"artifacts,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// NewJob creates a queued job with a random ID.
func NewJob(document, engine string, rows []placeholder.Collection) *Job {
	now := time.Now()
	results := make([]RowResult, len(rows))
	for i := range results {
		results[i].Row = i
	}
	return &Job{
		ID:        uuid.NewString(),
		Document:  document,
		Engine:    engine,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalRows: len(rows)},
		CreatedAt: now,
		UpdatedAt: now,
		rows:      rows,
		results:   results,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a job-level error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.addErrorLocked(err)
}

func (j *Job) addErrorLocked(err string) {
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Rows returns the placeholder rows to render.
func (j *Job) Rows() []placeholder.Collection {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows
}

// RecordRow stores the outcome of one row.
func (j *Job) RecordRow(row int, artifacts []generator.Artifact, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if row < 0 || row >= len(j.results) {
		return
	}
	r := RowResult{Row: row, Done: true}
	if err != nil {
		r.Error = err.Error()
		j.Progress.RowsFailed++
		j.addErrorLocked(fmt.Sprintf("row %d: %s", row, err))
	} else {
		r.Artifacts = artifacts
		j.Progress.RowsRendered++
	}
	j.results[row] = r
	j.UpdatedAt = time.Now()
}

// Result returns a copy of one row's outcome.
func (j *Job) Result(row int) (RowResult, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if row < 0 || row >= len(j.results) {
		return RowResult{}, false
	}
	r := j.results[row]
	r.Artifacts = generator.CloneAll(r.Artifacts)
	return r, true
}

// Finish picks the terminal status from the row outcomes.
func (j *Job) Finish() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.Progress.TotalRows == 0 || j.Progress.RowsRendered == 0:
		j.Status = StatusFailed
	case j.Progress.RowsFailed > 0:
		j.Status = StatusPartial
	default:
		j.Status = StatusCompleted
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
	j.closeDone()
	return j.Status
}

// Fail marks the job failed without rendering the remaining rows.
func (j *Job) Fail(phase, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.addErrorLocked(reason)
	j.Status = StatusFailed
	j.Phase = phase
	j.closeDone()
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) closeDone() {
	j.doneOnce.Do(func() {
		if j.done != nil {
			close(j.done)
		}
	})
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Document  string    `json:"document"`
	Engine    string    `json:"engine,omitempty"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:       j.ID,
		Document: j.Document,
		Engine:   j.Engine,
		Status:   j.Status,
		Phase:    j.Phase,
		Progress: Progress{
			TotalRows:    j.Progress.TotalRows,
			RowsRendered: j.Progress.RowsRendered,
			RowsFailed:   j.Progress.RowsFailed,
			Errors:       errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
