package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Store is the document-store collaborator. Implementations must treat the
// aggregate as the unit of persistence: Save replaces the whole document and
// fails with ErrConflict when the stored revision no longer matches the
// loaded one. Get, List, and Delete are owner-scoped; a project owned by a
// different caller is reported as ErrNotFound.
type Store interface {
	Get(ctx context.Context, id, ownerID string) (*Project, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Project, int64, error)
	Create(ctx context.Context, p *Project) error
	Save(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id, ownerID string) error
}

// ListOptions controls pagination, filtering, and ordering of project lists.
type ListOptions struct {
	Page      int    // 1-based, default 1
	Limit     int    // 1-100, default 10
	Status    string // optional status filter
	SortBy    string // createdAt, updatedAt, title, dueDate, status
	SortOrder string // asc or desc, default desc
}

// ListSortFields is the whitelist of sortable fields.
var ListSortFields = map[string]bool{
	"createdAt": true,
	"updatedAt": true,
	"title":     true,
	"dueDate":   true,
	"status":    true,
}

// normalized applies defaults and clamps limits.
func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if !ListSortFields[o.SortBy] {
		o.SortBy = "createdAt"
	}
	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}
	return o
}

// ProjectUpdate is a partial update: nil fields are left untouched.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *time.Time
}

// TaskDraft carries the caller-supplied fields for a new main task or
// subtask. Empty status and priority take the entity defaults.
type TaskDraft struct {
	Name        string
	Description string
	Status      string
	Priority    string
}

// TaskUpdate is a partial update for a main task or subtask.
type TaskUpdate struct {
	Name        *string
	Description *string
	Status      *string
	Priority    *string
}

// CommentDraft carries the fields of a new comment. The timestamp is always
// server-assigned.
type CommentDraft struct {
	Author  string
	Content string
}

// saveRetries bounds how many times an operation is replayed after losing a
// revision race to an out-of-band writer.
const saveRetries = 3

// Service is the mutation engine. Every operation is scoped to the calling
// owner, addressed positionally, validated before any mutation, and persisted
// as a single whole-aggregate save. A per-project lock serializes concurrent
// operations in-process; the store's revision check covers writers this
// process cannot see.
type Service struct {
	store Store
	locks *keyedLock
	log   *log.Logger
}

// NewService returns a Service backed by the given store.
func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, locks: newKeyedLock(), log: logger}
}

// mutate runs fn against the freshly loaded aggregate under the per-project
// lock, recomputes derived state, and saves. On a revision conflict the whole
// sequence is replayed, so fn must be safe to run more than once and must
// revalidate its positional addresses against the reloaded snapshot (it does,
// because validation happens inside fn).
func (s *Service) mutate(ctx context.Context, id, ownerID string, fn func(p *Project) error) (*Project, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		p, err := s.store.Get(ctx, id, ownerID)
		if err != nil {
			return nil, err
		}
		if err := fn(p); err != nil {
			return nil, err
		}
		p.RecomputeStatus()
		err = s.store.Save(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrConflict) || attempt >= saveRetries {
			return nil, err
		}
		s.log.Warn("retrying after save conflict", "project", id, "attempt", attempt)
	}
}

// CreateProject assigns identity and defaults to a draft aggregate and
// persists it. The draft may come from a manual payload or from
// NormalizeCandidate.
func (s *Service) CreateProject(ctx context.Context, ownerID string, draft *Project) (*Project, error) {
	p := draft.Clone()
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Status == "" {
		p.Status = StatusInProgress
	} else if !ValidProjectStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown project status %q", ErrValidation, p.Status)
	}
	p.ID = uuid.NewString()
	p.OwnerID = ownerID
	now := time.Now().UTC()
	if p.MainTasks == nil {
		p.MainTasks = []MainTask{}
	}
	for i := range p.MainTasks {
		if err := initTask(&p.MainTasks[i], now); err != nil {
			return nil, err
		}
	}
	p.RecomputeStatus()
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("project created", "project", p.ID, "owner", ownerID)
	return p, nil
}

// GetProject loads a single aggregate scoped to the owner.
func (s *Service) GetProject(ctx context.Context, ownerID, id string) (*Project, error) {
	return s.store.Get(ctx, id, ownerID)
}

// ListProjects returns one page of the owner's projects and the total count.
func (s *Service) ListProjects(ctx context.Context, ownerID string, opts ListOptions) ([]*Project, int64, error) {
	return s.store.List(ctx, ownerID, opts.normalized())
}

// UpdateProject applies a partial update to project-level fields.
func (s *Service) UpdateProject(ctx context.Context, ownerID, id string, upd ProjectUpdate) (*Project, error) {
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				return fmt.Errorf("%w: title is required", ErrValidation)
			}
			p.Title = title
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Status != nil {
			if !ValidProjectStatus(*upd.Status) {
				return fmt.Errorf("%w: unknown project status %q", ErrValidation, *upd.Status)
			}
			p.Status = *upd.Status
		}
		if upd.DueDate != nil {
			d := *upd.DueDate
			p.DueDate = &d
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("project updated", "project", id)
	return p, nil
}

// DeleteProject removes the aggregate and, with it, every nested entity.
func (s *Service) DeleteProject(ctx context.Context, ownerID, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.log.Info("project deleted", "project", id)
	return nil
}

// AddMainTask appends a new main task and returns the created entity. Any
// name is accepted; required-field checks live at the request boundary.
func (s *Service) AddMainTask(ctx context.Context, ownerID, id string, draft TaskDraft) (*MainTask, error) {
	var taskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		task, err := newTask(draft)
		if err != nil {
			return err
		}
		taskID = task.ID
		p.MainTasks = append(p.MainTasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task added", "project", id, "task", taskID)
	return p.taskByID(taskID), nil
}

// UpdateMainTask applies a partial update to the task at index.
func (s *Service) UpdateMainTask(ctx context.Context, ownerID, id string, index int, upd TaskUpdate) (*MainTask, error) {
	var taskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, err = p.resolveTask(index)
		if err != nil {
			return err
		}
		task := p.taskByID(taskID)
		if err := applyTaskUpdate(upd, &task.Name, &task.Description, &task.Status, &task.Priority); err != nil {
			return err
		}
		task.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task updated", "project", id, "task", taskID)
	return p.taskByID(taskID), nil
}

// DeleteMainTask removes the task at index, shifting subsequent indices down
// by one. Deletion cascades to the task's subtasks and comments because they
// only exist inside the aggregate.
func (s *Service) DeleteMainTask(ctx context.Context, ownerID, id string, index int) error {
	var taskID string
	_, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, err = p.resolveTask(index)
		if err != nil {
			return err
		}
		for i := range p.MainTasks {
			if p.MainTasks[i].ID == taskID {
				p.MainTasks = append(p.MainTasks[:i], p.MainTasks[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("task deleted", "project", id, "task", taskID)
	return nil
}

// AddSubtask appends a new subtask under the task at taskIndex and returns
// the created entity.
func (s *Service) AddSubtask(ctx context.Context, ownerID, id string, taskIndex int, draft TaskDraft) (*Subtask, error) {
	var taskID, subtaskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, err = p.resolveTask(taskIndex)
		if err != nil {
			return err
		}
		st, err := newSubtask(draft)
		if err != nil {
			return err
		}
		subtaskID = st.ID
		task := p.taskByID(taskID)
		task.Subtasks = append(task.Subtasks, st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("subtask added", "project", id, "task", taskID, "subtask", subtaskID)
	return p.taskByID(taskID).subtaskByID(subtaskID), nil
}

// UpdateSubtask applies a partial update to the subtask at (taskIndex,
// subtaskIndex).
func (s *Service) UpdateSubtask(ctx context.Context, ownerID, id string, taskIndex, subtaskIndex int, upd TaskUpdate) (*Subtask, error) {
	var taskID, subtaskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, subtaskID, err = p.resolveSubtask(taskIndex, subtaskIndex)
		if err != nil {
			return err
		}
		st := p.taskByID(taskID).subtaskByID(subtaskID)
		if err := applyTaskUpdate(upd, &st.Name, &st.Description, &st.Status, &st.Priority); err != nil {
			return err
		}
		st.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("subtask updated", "project", id, "task", taskID, "subtask", subtaskID)
	return p.taskByID(taskID).subtaskByID(subtaskID), nil
}

// DeleteSubtask removes the subtask at (taskIndex, subtaskIndex), shifting
// subsequent subtask indices within that task only.
func (s *Service) DeleteSubtask(ctx context.Context, ownerID, id string, taskIndex, subtaskIndex int) error {
	var taskID, subtaskID string
	_, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, subtaskID, err = p.resolveSubtask(taskIndex, subtaskIndex)
		if err != nil {
			return err
		}
		task := p.taskByID(taskID)
		for i := range task.Subtasks {
			if task.Subtasks[i].ID == subtaskID {
				task.Subtasks = append(task.Subtasks[:i], task.Subtasks[i+1:]...)
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("subtask deleted", "project", id, "task", taskID, "subtask", subtaskID)
	return nil
}

// AddTaskComment appends a comment to the task at index and returns the full
// comment sequence, which callers treat as the authoritative result of the
// write.
func (s *Service) AddTaskComment(ctx context.Context, ownerID, id string, index int, draft CommentDraft) ([]Comment, error) {
	comment, err := newComment(draft)
	if err != nil {
		return nil, err
	}
	var taskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, err = p.resolveTask(index)
		if err != nil {
			return err
		}
		task := p.taskByID(taskID)
		task.Comments = append(task.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("comment added to task", "project", id, "task", taskID)
	return p.taskByID(taskID).Comments, nil
}

// AddSubtaskComment appends a comment to the subtask at (taskIndex,
// subtaskIndex) and returns the full comment sequence.
func (s *Service) AddSubtaskComment(ctx context.Context, ownerID, id string, taskIndex, subtaskIndex int, draft CommentDraft) ([]Comment, error) {
	comment, err := newComment(draft)
	if err != nil {
		return nil, err
	}
	var taskID, subtaskID string
	p, err := s.mutate(ctx, id, ownerID, func(p *Project) error {
		var err error
		taskID, subtaskID, err = p.resolveSubtask(taskIndex, subtaskIndex)
		if err != nil {
			return err
		}
		st := p.taskByID(taskID).subtaskByID(subtaskID)
		st.Comments = append(st.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("comment added to subtask", "project", id, "task", taskID, "subtask", subtaskID)
	return p.taskByID(taskID).subtaskByID(subtaskID).Comments, nil
}

// TaskComments returns the comments of the task at index in insertion order.
func (s *Service) TaskComments(ctx context.Context, ownerID, id string, index int) ([]Comment, error) {
	p, err := s.store.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	taskID, err := p.resolveTask(index)
	if err != nil {
		return nil, err
	}
	return p.taskByID(taskID).Comments, nil
}

// SubtaskComments returns the comments of the subtask at (taskIndex,
// subtaskIndex) in insertion order.
func (s *Service) SubtaskComments(ctx context.Context, ownerID, id string, taskIndex, subtaskIndex int) ([]Comment, error) {
	p, err := s.store.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	taskID, subtaskID, err := p.resolveSubtask(taskIndex, subtaskIndex)
	if err != nil {
		return nil, err
	}
	return p.taskByID(taskID).subtaskByID(subtaskID).Comments, nil
}

func newTask(draft TaskDraft) (MainTask, error) {
	status, priority, err := draftEnums(draft)
	if err != nil {
		return MainTask{}, err
	}
	now := time.Now().UTC()
	return MainTask{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Status:      status,
		Priority:    priority,
		Comments:    []Comment{},
		Subtasks:    []Subtask{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func newSubtask(draft TaskDraft) (Subtask, error) {
	status, priority, err := draftEnums(draft)
	if err != nil {
		return Subtask{}, err
	}
	now := time.Now().UTC()
	return Subtask{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		Status:      status,
		Priority:    priority,
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func newComment(draft CommentDraft) (Comment, error) {
	author := strings.TrimSpace(draft.Author)
	content := strings.TrimSpace(draft.Content)
	if author == "" {
		return Comment{}, fmt.Errorf("%w: comment author is required", ErrValidation)
	}
	if content == "" {
		return Comment{}, fmt.Errorf("%w: comment content is required", ErrValidation)
	}
	return Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}, nil
}

func draftEnums(draft TaskDraft) (status, priority string, err error) {
	status = draft.Status
	if status == "" {
		status = TaskStatusNotStarted
	} else if !ValidTaskStatus(status) {
		return "", "", fmt.Errorf("%w: unknown task status %q", ErrValidation, draft.Status)
	}
	priority = draft.Priority
	if priority == "" {
		priority = PriorityMedium
	} else if !ValidPriority(priority) {
		return "", "", fmt.Errorf("%w: unknown priority %q", ErrValidation, draft.Priority)
	}
	return status, priority, nil
}

func applyTaskUpdate(upd TaskUpdate, name, description, status, priority *string) error {
	if upd.Status != nil && !ValidTaskStatus(*upd.Status) {
		return fmt.Errorf("%w: unknown task status %q", ErrValidation, *upd.Status)
	}
	if upd.Priority != nil && !ValidPriority(*upd.Priority) {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, *upd.Priority)
	}
	if upd.Name != nil {
		*name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		*description = *upd.Description
	}
	if upd.Status != nil {
		*status = *upd.Status
	}
	if upd.Priority != nil {
		*priority = *upd.Priority
	}
	return nil
}

// initTask assigns identity, defaults, and timestamps to a drafted main task
// and its subtasks during project creation.
func initTask(t *MainTask, now time.Time) error {
	status, priority, err := draftEnums(TaskDraft{Status: t.Status, Priority: t.Priority})
	if err != nil {
		return err
	}
	t.ID = uuid.NewString()
	t.Status = status
	t.Priority = priority
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
	for i := range t.Comments {
		if err := initComment(&t.Comments[i], now); err != nil {
			return err
		}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	for i := range t.Subtasks {
		st := &t.Subtasks[i]
		status, priority, err := draftEnums(TaskDraft{Status: st.Status, Priority: st.Priority})
		if err != nil {
			return err
		}
		st.ID = uuid.NewString()
		st.Status = status
		st.Priority = priority
		st.CreatedAt = now
		st.UpdatedAt = now
		if st.Comments == nil {
			st.Comments = []Comment{}
		}
		for j := range st.Comments {
			if err := initComment(&st.Comments[j], now); err != nil {
				return err
			}
		}
	}
	return nil
}

func initComment(c *Comment, now time.Time) error {
	if strings.TrimSpace(c.Author) == "" || strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: comment author and content are required", ErrValidation)
	}
	c.ID = uuid.NewString()
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}
	return nil
}
