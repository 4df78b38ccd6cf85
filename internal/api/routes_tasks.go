package api

import (
	"net/http"

	"github.com/taskdeck/taskdeck/internal/project"
)

type taskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

type taskUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

type commentRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// handleTaskSubtree routes the positional sub-resources below
// /api/v1/projects/{id}/tasks. rest holds the path segments after "tasks".
func (s *Server) handleTaskSubtree(w http.ResponseWriter, r *http.Request, ownerID, projectID string, rest []string) {
	switch len(rest) {
	case 0:
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			return
		}
		s.handleAddTask(w, r, ownerID, projectID)
	case 1:
		s.handleTaskByIndex(w, r, ownerID, projectID, rest[0])
	case 2:
		switch rest[1] {
		case "comments":
			s.handleTaskComments(w, r, ownerID, projectID, rest[0])
		case "subtasks":
			if r.Method != http.MethodPost {
				respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
				return
			}
			s.handleAddSubtask(w, r, ownerID, projectID, rest[0])
		default:
			respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
		}
	case 3:
		if rest[1] != "subtasks" {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
			return
		}
		s.handleSubtaskByIndex(w, r, ownerID, projectID, rest[0], rest[2])
	case 4:
		if rest[1] != "subtasks" || rest[3] != "comments" {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
			return
		}
		s.handleSubtaskComments(w, r, ownerID, projectID, rest[0], rest[2])
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	}
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request, ownerID, projectID string) {
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "task name is required")
		return
	}
	task, err := s.deps.Service.AddMainTask(r.Context(), ownerID, projectID, project.TaskDraft(req))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.publish("task.tree.updated", projectID)
	respondOK(w, http.StatusCreated, task)
}

func (s *Server) handleTaskByIndex(w http.ResponseWriter, r *http.Request, ownerID, projectID, rawIndex string) {
	index, err := project.ParseTaskIndex(rawIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req taskUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		task, err := s.deps.Service.UpdateMainTask(r.Context(), ownerID, projectID, index, project.TaskUpdate(req))
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusOK, task)
	case http.MethodDelete:
		if err := s.deps.Service.DeleteMainTask(r.Context(), ownerID, projectID, index); err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request, ownerID, projectID, rawIndex string) {
	index, err := project.ParseTaskIndex(rawIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "subtask name is required")
		return
	}
	subtask, err := s.deps.Service.AddSubtask(r.Context(), ownerID, projectID, index, project.TaskDraft(req))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.publish("task.tree.updated", projectID)
	respondOK(w, http.StatusCreated, subtask)
}

func (s *Server) handleSubtaskByIndex(w http.ResponseWriter, r *http.Request, ownerID, projectID, rawTaskIndex, rawSubtaskIndex string) {
	taskIndex, err := project.ParseTaskIndex(rawTaskIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	subtaskIndex, err := project.ParseSubtaskIndex(rawSubtaskIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req taskUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		subtask, err := s.deps.Service.UpdateSubtask(r.Context(), ownerID, projectID, taskIndex, subtaskIndex, project.TaskUpdate(req))
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusOK, subtask)
	case http.MethodDelete:
		if err := s.deps.Service.DeleteSubtask(r.Context(), ownerID, projectID, taskIndex, subtaskIndex); err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusOK, map[string]any{"message": "Subtask deleted successfully"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleTaskComments(w http.ResponseWriter, r *http.Request, ownerID, projectID, rawIndex string) {
	index, err := project.ParseTaskIndex(rawIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		comments, err := s.deps.Service.TaskComments(r.Context(), ownerID, projectID, index)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		respondOK(w, http.StatusOK, comments)
	case http.MethodPost:
		var req commentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		comments, err := s.deps.Service.AddTaskComment(r.Context(), ownerID, projectID, index, project.CommentDraft(req))
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusCreated, comments)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleSubtaskComments(w http.ResponseWriter, r *http.Request, ownerID, projectID, rawTaskIndex, rawSubtaskIndex string) {
	taskIndex, err := project.ParseTaskIndex(rawTaskIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	subtaskIndex, err := project.ParseSubtaskIndex(rawSubtaskIndex)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		comments, err := s.deps.Service.SubtaskComments(r.Context(), ownerID, projectID, taskIndex, subtaskIndex)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		respondOK(w, http.StatusOK, comments)
	case http.MethodPost:
		var req commentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		comments, err := s.deps.Service.AddSubtaskComment(r.Context(), ownerID, projectID, taskIndex, subtaskIndex, project.CommentDraft(req))
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		s.publish("task.tree.updated", projectID)
		respondOK(w, http.StatusCreated, comments)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}
