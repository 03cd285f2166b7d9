package pipeline

import (
	"context"
	"log/slog"

	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/manager"
)

// Renderer renders one document for one placeholder set.
type Renderer interface {
	Render(ctx context.Context, name string, input any, opts ...manager.RenderOption) ([]generator.Artifact, error)
}

// Worker processes a single merge job.
type Worker struct {
	renderer Renderer
	log      *slog.Logger

	maxConcurrentRender int
}

func NewWorker(r Renderer, log *slog.Logger, maxRender int) *Worker {
	if maxRender <= 0 {
		maxRender = 1
	}
	return &Worker{
		renderer:            r,
		log:                 log,
		maxConcurrentRender: maxRender,
	}
}

// Process renders every row of the job with bounded concurrency. Row
// failures are recorded and don't stop the other rows.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "document", job.Document, "engine", job.Engine)

	rows := job.Rows()
	if len(rows) == 0 {
		job.Fail("rendering", "no rows to merge")
		return
	}

	job.SetStatus(StatusRendering, "rendering")
	var opts []manager.RenderOption
	if job.Engine != "" {
		opts = append(opts, manager.UsingEngine(job.Engine))
	}

	done := make(chan struct{}, len(rows))
	sem := make(chan struct{}, w.maxConcurrentRender)

	for i, row := range rows {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			job.RecordRow(i, nil, ctx.Err())
			done <- struct{}{}
			continue
		}
		go func(i int) {
			defer func() { <-sem }()
			arts, err := w.renderer.Render(ctx, job.Document, row, opts...)
			if err != nil {
				log.Warn("row render failed", "row", i, "error", err)
			}
			job.RecordRow(i, arts, err)
			done <- struct{}{}
		}(i)
	}

	for range rows {
		<-done
	}

	status := job.Finish()
	snap := job.Snapshot()
	log.Info("merge complete", "status", status, "rendered", snap.Progress.RowsRendered, "failed", snap.Progress.RowsFailed)
}
