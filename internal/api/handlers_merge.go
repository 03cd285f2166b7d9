package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/dgallion1/docmerge/internal/placeholder"
)

type mergeRequest struct {
	Document string           `json:"document"`
	Engine   string           `json:"engine,omitempty"`
	Rows     []map[string]any `json:"rows"`
}

// handleMerge queues a batch merge. Rows come either as JSON or as a CSV
// upload in the "data" field of a multipart form.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var (
		docName, engineKey string
		rows               []placeholder.Collection
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		docName = r.FormValue("document")
		engineKey = r.FormValue("engine")
		file, _, err := r.FormFile("data")
		if err != nil {
			jsonError(w, "data file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		rows, err = placeholder.ReadCSV(file)
		if err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	} else {
		var req mergeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		docName, engineKey = req.Document, req.Engine
		for _, row := range req.Rows {
			rows = append(rows, placeholder.FromMap(row))
		}
	}

	if docName == "" {
		jsonError(w, "document is required", http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		jsonError(w, "at least one row is required", http.StatusBadRequest)
		return
	}
	if engineKey != "" && !slices.Contains(s.manager.Engines(), engineKey) {
		jsonError(w, fmt.Sprintf("unknown engine %q", engineKey), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(docName, engineKey, rows)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"document": job.Document,
		"rows":     len(rows),
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/merge/%s/status", job.ID),
	})
}

func (s *Server) handleMergeStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleMergeResult returns one row's artifacts. ?download=1 works as for
// a single render.
func (s *Server) handleMergeResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		jsonError(w, "row must be a number", http.StatusBadRequest)
		return
	}
	res, ok := job.Result(row)
	if !ok {
		jsonError(w, "row not found", http.StatusNotFound)
		return
	}
	if !res.Done {
		jsonError(w, "row not rendered yet", http.StatusConflict)
		return
	}
	if r.URL.Query().Get("download") == "1" {
		if res.Error != "" {
			jsonError(w, res.Error, http.StatusUnprocessableEntity)
			return
		}
		writeArtifact(w, fmt.Sprintf("%s-%d", job.Document, row), res.Artifacts, r.URL.Query().Get("format"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
