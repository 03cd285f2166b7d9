package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/manager"
	"github.com/dgallion1/docmerge/internal/placeholder"
)

type fakeRenderer struct {
	mu      sync.Mutex
	calls   int
	active  atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
	failRow map[int]bool
	block   chan struct{}
}

func (f *fakeRenderer) Render(ctx context.Context, name string, input any, _ ...manager.RenderOption) ([]generator.Artifact, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	c := input.(placeholder.Collection)
	v, _ := c.Get("n")
	row := v.(int)
	if f.failRow[row] {
		return nil, fmt.Errorf("row %d rejected", row)
	}
	return []generator.Artifact{{Format: "text", Data: []byte(fmt.Sprintf("%s-%d", name, row))}}, nil
}

func testConfig() config.Config {
	return config.Config{
		WorkerCount:         2,
		MaxQueueSize:        4,
		MaxConcurrentRender: 2,
		JobTTL:              time.Hour,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish", job.ID)
	}
	return job.Snapshot()
}

func TestOrchestrator_RendersAllRows(t *testing.T) {
	r := &fakeRenderer{delay: 5 * time.Millisecond}
	o := NewOrchestrator(testConfig(), r, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("invoice", "print", testRows(6))
	require.NoError(t, o.Submit(job))

	snap := waitDone(t, job)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 6, snap.Progress.RowsRendered)
	assert.LessOrEqual(t, r.peak.Load(), int32(2))
	assert.Same(t, job, o.GetJob(job.ID))

	res, ok := job.Result(4)
	require.True(t, ok)
	assert.Equal(t, "invoice-4", string(res.Artifacts[0].Data))
}

func TestOrchestrator_PartialFailure(t *testing.T) {
	r := &fakeRenderer{failRow: map[int]bool{1: true}}
	o := NewOrchestrator(testConfig(), r, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("invoice", "", testRows(3))
	require.NoError(t, o.Submit(job))

	snap := waitDone(t, job)
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Equal(t, 2, snap.Progress.RowsRendered)
	assert.Equal(t, 1, snap.Progress.RowsFailed)
	require.Len(t, snap.Progress.Errors, 1)
	assert.Contains(t, snap.Progress.Errors[0], "row 1")

	res, _ := job.Result(1)
	assert.Empty(t, res.Artifacts)
}

func TestOrchestrator_EmptyJobFails(t *testing.T) {
	o := NewOrchestrator(testConfig(), &fakeRenderer{}, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("invoice", "", nil)
	require.NoError(t, o.Submit(job))
	snap := waitDone(t, job)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, []string{"no rows to merge"}, snap.Progress.Errors)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, &fakeRenderer{}, quietLogger())
	// Workers not started, so the queue never drains.

	require.NoError(t, o.Submit(NewJob("a", "", testRows(1))))
	job := NewJob("b", "", testRows(1))
	err := o.Submit(job)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, waitDone(t, job).Status)
	assert.Equal(t, 1, o.QueueDepth())
}

func TestOrchestrator_StopCancelsRenders(t *testing.T) {
	r := &fakeRenderer{block: make(chan struct{})}
	o := NewOrchestrator(testConfig(), r, quietLogger())
	o.Start(context.Background())

	job := NewJob("invoice", "", testRows(2))
	require.NoError(t, o.Submit(job))
	require.Eventually(t, func() bool { return r.active.Load() > 0 }, 5*time.Second, 5*time.Millisecond)

	o.Stop()
	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, 2, snap.Progress.RowsFailed)

	err := o.Submit(NewJob("late", "", testRows(1)))
	assert.True(t, errors.Is(err, ErrStopped))
	o.Stop()
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	o := NewOrchestrator(testConfig(), &fakeRenderer{}, quietLogger())
	// Workers not started, so both jobs are still queued at Stop.
	a := NewJob("a", "", testRows(1))
	b := NewJob("b", "", testRows(2))
	require.NoError(t, o.Submit(a))
	require.NoError(t, o.Submit(b))

	o.Stop()
	for _, job := range []*Job{a, b} {
		snap := waitDone(t, job)
		assert.Equal(t, StatusFailed, snap.Status)
		assert.Equal(t, "shutdown", snap.Phase)
	}
	assert.Equal(t, 0, o.QueueDepth())
}

func TestOrchestrator_StopWithBusyWorker(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerCount = 1
	r := &fakeRenderer{block: make(chan struct{})}
	o := NewOrchestrator(cfg, r, quietLogger())
	o.Start(context.Background())

	running := NewJob("running", "", testRows(1))
	require.NoError(t, o.Submit(running))
	require.Eventually(t, func() bool { return r.active.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
	waiting := NewJob("waiting", "", testRows(1))
	require.NoError(t, o.Submit(waiting))

	o.Stop()
	assert.Equal(t, StatusFailed, waitDone(t, running).Status)
	assert.Equal(t, StatusFailed, waitDone(t, waiting).Status)
}
