// Package project holds the project aggregate and the mutation engine that
// operates on it. A Project and everything nested under it (main tasks,
// subtasks, comments) is one persistence unit: every write path loads the
// whole aggregate, mutates it in memory, and saves it back in one atomic
// replace.
package project

import "time"

// Project status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Task status constants, shared by main tasks and subtasks.
const (
	TaskStatusNotStarted = "not-started"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Project is the aggregate root. MainTasks is an ordered sequence; nested
// entities are addressed by position, not by ID, at the external interface.
type Project struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	OwnerID     string     `json:"ownerId"`
	MainTasks   []MainTask `json:"mainTasks"`
	Revision    int64      `json:"revision"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MainTask is owned exclusively by its Project.
type MainTask struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Comments    []Comment `json:"comments"`
	Subtasks    []Subtask `json:"subtasks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subtask has the same shape as MainTask minus nesting.
type Subtask struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is append-only: there is no update or delete operation for
// individual comments.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidProjectStatus reports whether s is a member of the project status enum.
func ValidProjectStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidTaskStatus reports whether s is a member of the task status enum.
func ValidTaskStatus(s string) bool {
	return s == TaskStatusNotStarted || s == TaskStatusInProgress || s == TaskStatusCompleted
}

// ValidPriority reports whether s is a member of the priority enum.
func ValidPriority(s string) bool {
	return s == PriorityLow || s == PriorityMedium || s == PriorityHigh
}

// RecomputeStatus derives the project status from main-task statuses. The
// rule is one-directional: a non-empty task list in which every task is
// completed promotes the project to completed, but reopening a task never
// demotes a completed project.
func (p *Project) RecomputeStatus() {
	if len(p.MainTasks) == 0 {
		return
	}
	for i := range p.MainTasks {
		if p.MainTasks[i].Status != TaskStatusCompleted {
			return
		}
	}
	if p.Status != StatusCompleted {
		p.Status = StatusCompleted
	}
}

// CompletionPercentage returns the share of completed main tasks, rounded to
// the nearest whole percent. An empty task list is 0%.
func (p *Project) CompletionPercentage() int {
	if len(p.MainTasks) == 0 {
		return 0
	}
	completed := 0
	for i := range p.MainTasks {
		if p.MainTasks[i].Status == TaskStatusCompleted {
			completed++
		}
	}
	return int(float64(completed)/float64(len(p.MainTasks))*100 + 0.5)
}

// Clone returns a deep copy of the aggregate. Stores hand out clones so
// callers can never mutate persisted state without going through Save.
func (p *Project) Clone() *Project {
	cp := *p
	if p.DueDate != nil {
		d := *p.DueDate
		cp.DueDate = &d
	}
	cp.MainTasks = make([]MainTask, len(p.MainTasks))
	for i := range p.MainTasks {
		cp.MainTasks[i] = p.MainTasks[i].clone()
	}
	return &cp
}

func (t MainTask) clone() MainTask {
	ct := t
	ct.Comments = append([]Comment(nil), t.Comments...)
	ct.Subtasks = make([]Subtask, len(t.Subtasks))
	for i := range t.Subtasks {
		ct.Subtasks[i] = t.Subtasks[i].clone()
	}
	return ct
}

func (st Subtask) clone() Subtask {
	cs := st
	cs.Comments = append([]Comment(nil), st.Comments...)
	return cs
}
