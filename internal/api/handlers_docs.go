package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docmerge/internal/document"
	"github.com/dgallion1/docmerge/internal/generator"
	"github.com/dgallion1/docmerge/internal/manager"
	"github.com/dgallion1/docmerge/internal/parser"
	"github.com/dgallion1/docmerge/internal/placeholder"
	"github.com/dgallion1/docmerge/internal/transform"
)

// renderRequest is the JSON body of render and availability calls.
type renderRequest struct {
	Placeholders map[string]any `json:"placeholders"`
	Engine       string         `json:"engine,omitempty"`
}

// handleListDocuments lists the documents available for the query string
// placeholders, one value per name.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]any)
	for name, v := range r.URL.Query() {
		if len(v) > 0 {
			values[name] = v[0]
		}
	}
	s.writeDocuments(w, r, values)
}

// handleAvailableDocuments is handleListDocuments with a JSON body, for
// structured placeholder values.
func (s *Server) handleAvailableDocuments(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRenderRequest(w, r)
	if !ok {
		return
	}
	s.writeDocuments(w, r, req.Placeholders)
}

func (s *Server) writeDocuments(w http.ResponseWriter, r *http.Request, values map[string]any) {
	docs, err := s.manager.DocumentList(r.Context(), values)
	if err != nil {
		s.renderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleRender renders one document. With ?download=1 the raw bytes of a
// single artifact are returned, picked by ?format= or the first one.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	req, ok := s.decodeRenderRequest(w, r)
	if !ok {
		return
	}

	var opts []manager.RenderOption
	if req.Engine != "" {
		opts = append(opts, manager.UsingEngine(req.Engine))
	}
	arts, err := s.manager.Render(r.Context(), name, req.Placeholders, opts...)
	if err != nil {
		s.log.Info("render rejected", "document", name, "error", err)
		s.renderError(w, err)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		writeArtifact(w, name, arts, r.URL.Query().Get("format"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document":  name,
		"artifacts": arts,
	})
}

func (s *Server) decodeRenderRequest(w http.ResponseWriter, r *http.Request) (renderRequest, bool) {
	var req renderRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// writeArtifact sends one artifact as a file download.
func writeArtifact(w http.ResponseWriter, name string, arts []generator.Artifact, format string) {
	if len(arts) == 0 {
		jsonError(w, "engine produced no artifacts", http.StatusNotFound)
		return
	}
	art := arts[0]
	if format != "" {
		found := false
		for _, a := range arts {
			if a.Format == format {
				art, found = a, true
				break
			}
		}
		if !found {
			jsonError(w, fmt.Sprintf("no %s artifact", format), http.StatusNotFound)
			return
		}
	}
	filename := sanitizeFilename(name + "." + art.Format)
	w.Header().Set("Content-Type", art.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if art.Fingerprint != "" {
		w.Header().Set("ETag", `"`+art.Fingerprint+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case document.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrUnknownEngine):
		return http.StatusBadRequest
	case placeholder.IsInvalidInput(err),
		parser.IsUnresolved(err),
		parser.IsSyntax(err),
		transform.IsTransformError(err):
		return http.StatusUnprocessableEntity
	case generator.IsGenerationError(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error("render failed", "error", err)
	}
	jsonError(w, err.Error(), code)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
