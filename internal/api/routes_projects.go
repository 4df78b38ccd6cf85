package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/project"
)

// projectPayload decorates the aggregate with its derived completion share.
type projectPayload struct {
	*project.Project
	CompletionPercentage int `json:"completionPercentage"`
}

func viewProject(p *project.Project) projectPayload {
	return projectPayload{Project: p, CompletionPercentage: p.CompletionPercentage()}
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleListProjects(w, r, ownerID)
	case http.MethodPost:
		s.handleCreateProject(w, r, ownerID)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

// handleProjectSubtree dispatches everything under /api/v1/projects/: the
// project resource itself plus the positional task, subtask, and comment
// sub-resources.
func (s *Server) handleProjectSubtree(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/projects/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		return
	}

	if len(parts) == 1 && parts[0] == "upload" {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		s.handleUploadProject(w, r)
		return
	}

	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	projectID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleProjectByID(w, r, ownerID, projectID)
	case parts[1] == "tasks":
		s.handleTaskSubtree(w, r, ownerID, projectID, parts[2:])
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request, ownerID, projectID string) {
	switch r.Method {
	case http.MethodGet:
		p, err := s.deps.Service.GetProject(r.Context(), ownerID, projectID)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		respondOK(w, http.StatusOK, viewProject(p))
	case http.MethodPut:
		var req struct {
			Title       *string    `json:"title"`
			Description *string    `json:"description"`
			Status      *string    `json:"status"`
			DueDate     *time.Time `json:"dueDate"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := s.deps.Service.UpdateProject(r.Context(), ownerID, projectID, project.ProjectUpdate{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			DueDate:     req.DueDate,
		})
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("project.updated", projectID)
		respondOK(w, http.StatusOK, viewProject(p))
	case http.MethodDelete:
		if err := s.deps.Service.DeleteProject(r.Context(), ownerID, projectID); err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("project.deleted", projectID)
		respondOK(w, http.StatusOK, map[string]any{"message": "Project deleted successfully"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, ownerID string) {
	opts, ok := parseListOptions(w, r)
	if !ok {
		return
	}
	projects, total, err := s.deps.Service.ListProjects(r.Context(), ownerID, opts)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	views := make([]projectPayload, 0, len(projects))
	for _, p := range projects {
		views = append(views, viewProject(p))
	}
	respondOK(w, http.StatusOK, map[string]any{
		"projects": views,
		"pagination": map[string]any{
			"page":  opts.Page,
			"limit": opts.Limit,
			"total": total,
			"pages": int64(math.Ceil(float64(total) / float64(opts.Limit))),
		},
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req struct {
		Title       string                    `json:"title"`
		Description string                    `json:"description"`
		Status      string                    `json:"status"`
		DueDate     *time.Time                `json:"dueDate"`
		MainTasks   []project.CandidateTask   `json:"mainTasks"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	candidate := project.Candidate{Title: req.Title, Description: req.Description, MainTasks: req.MainTasks}
	draft := candidate.Normalize()
	draft.Status = req.Status
	draft.DueDate = req.DueDate

	p, err := s.deps.Service.CreateProject(r.Context(), ownerID, draft)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.publish("project.created", p.ID)
	respondOK(w, http.StatusCreated, viewProject(p))
}

// parseListOptions validates the pagination query parameters. Out-of-range
// numbers are rejected rather than silently clamped.
func parseListOptions(w http.ResponseWriter, r *http.Request) (project.ListOptions, bool) {
	q := r.URL.Query()
	opts := project.ListOptions{
		Page:      1,
		Limit:     10,
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "page must be a positive integer")
			return opts, false
		}
		opts.Page = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100")
			return opts, false
		}
		opts.Limit = n
	}
	if opts.Status != "" && !project.ValidProjectStatus(opts.Status) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status filter")
		return opts, false
	}
	if opts.SortBy != "" && !project.ListSortFields[opts.SortBy] {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown sortBy field")
		return opts, false
	}
	if opts.SortOrder != "" && opts.SortOrder != "asc" && opts.SortOrder != "desc" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sortOrder must be asc or desc")
		return opts, false
	}
	return opts, true
}
