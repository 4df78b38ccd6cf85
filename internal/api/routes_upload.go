package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskdeck/taskdeck/internal/project"
)

// maxUploadBytes caps the accepted PDF size.
const maxUploadBytes = 10 << 20

// handleUploadProject bootstraps a project from an uploaded PDF: extract the
// text, ask the AI collaborator for a candidate tree, normalize it, persist.
// The uploaded file is spooled to a temp file that is removed on every exit
// path, and no project exists until the whole chain has succeeded.
func (s *Server) handleUploadProject(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("pdf")
	if err != nil {
		respondError(w, http.StatusBadRequest, "NO_FILE_UPLOADED", "No file was uploaded")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Invalid file type. Only PDF files are allowed")
		return
	}

	tmp, err := os.CreateTemp("", "taskdeck-upload-*.pdf")
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, err = io.Copy(tmp, file)
	tmp.Close()
	if err != nil {
		respondError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File size exceeds maximum limit")
		return
	}

	text, err := s.deps.PDFText.Extract(r.Context(), tmpPath)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	raw, err := s.deps.Extractor.ExtractStructure(r.Context(), text)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	draft, err := project.NormalizeCandidate(raw)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	p, err := s.deps.Service.CreateProject(r.Context(), ownerID, draft)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.log.Info("project created from PDF", "project", p.ID, "file", header.Filename)
	s.publish("project.created", p.ID)
	respondOK(w, http.StatusCreated, viewProject(p))
}
