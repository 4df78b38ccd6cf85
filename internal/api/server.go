// Package api exposes the project service over HTTP with a JSON envelope and
// stable machine-readable error codes. Routing, auth, and serialization live
// here; every rule about the data itself lives in the project package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/taskdeck/taskdeck/internal/extract"
	"github.com/taskdeck/taskdeck/internal/pdftext"
	"github.com/taskdeck/taskdeck/internal/project"
)

// StructureExtractor is the AI-extraction collaborator.
type StructureExtractor interface {
	ExtractStructure(ctx context.Context, text string) ([]byte, error)
}

// TextExtractor is the PDF-text collaborator.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Authenticator resolves a request to an owner identity. The core trusts the
// resolved owner completely.
type Authenticator interface {
	Authenticate(r *http.Request) (ownerID string, err error)
}

// Deps carries the server's collaborators.
type Deps struct {
	Service   *project.Service
	Extractor StructureExtractor
	PDFText   TextExtractor
	Auth      Authenticator
	Logger    *log.Logger
}

// Server routes requests to the project service.
type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
	log  *log.Logger
}

// NewServer builds the route table.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub(), log: deps.Logger}
	s.mux.HandleFunc("/api/v1/projects", s.handleProjects)
	s.mux.HandleFunc("/api/v1/projects/", s.handleProjectSubtree)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, http.StatusOK, map[string]any{"status": "ok"})
}

// owner authenticates the request; on failure it writes the 401 response and
// returns false.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, err := s.deps.Auth.Authenticate(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return ownerID, true
}

// publish broadcasts a mutation event to connected websocket clients.
func (s *Server) publish(topic, projectID string) {
	s.hub.Publish(topic, projectID, nil)
}

func respondOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": map[string]any{"code": code, "message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps core errors to stable codes. Messages stay
// human-readable and free of internal detail.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Project not found")
	case errors.Is(err, project.ErrInvalidTaskIndex):
		respondError(w, http.StatusBadRequest, "INVALID_TASK_INDEX", "Invalid task index")
	case errors.Is(err, project.ErrInvalidSubtaskIndex):
		respondError(w, http.StatusBadRequest, "INVALID_SUBTASK_INDEX", "Invalid subtask index")
	case errors.Is(err, project.ErrValidation):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, project.ErrMalformedStructure):
		respondError(w, http.StatusUnprocessableEntity, "MALFORMED_STRUCTURE", "The extracted project structure is missing required fields")
	case errors.Is(err, project.ErrConflict):
		respondError(w, http.StatusConflict, "CONFLICT", "The project was modified concurrently, please retry")
	case errors.Is(err, pdftext.ErrNoText):
		respondError(w, http.StatusBadRequest, "NO_EXTRACTABLE_TEXT", "The PDF appears to be image-based or contains no extractable text")
	case errors.Is(err, extract.ErrService):
		respondError(w, http.StatusBadGateway, "EXTRACTION_FAILED", "Error processing with AI service")
	default:
		s.log.Error("internal error", "err", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error occurred")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body")
		return false
	}
	return true
}
