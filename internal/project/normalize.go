package project

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// candidateSchema is the shallow shape contract with the AI-extraction
// collaborator. Only the top-level required fields are constrained here;
// everything nested is coerced and defaulted field-by-field below.
const candidateSchema = `{
  "type": "object",
  "required": ["title", "mainTasks"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "mainTasks": {"type": "array"}
  }
}`

var compiledCandidateSchema = jsonschema.MustCompileString("candidate.json", candidateSchema)

// Candidate is an untrusted project tree, typically produced by AI extraction
// from a source document. It tolerates the loose shapes the extractor is
// known to emit, most notably subtasks given as bare name strings.
type Candidate struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MainTasks   []CandidateTask `json:"mainTasks"`
}

// CandidateTask mirrors MainTask with every field optional.
type CandidateTask struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	Subtasks    []CandidateSubtask `json:"subtasks"`
}

// CandidateSubtask accepts either an object or a bare string. A string is
// shorthand for {"name": ...} with every other field defaulted.
type CandidateSubtask struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

func (s *CandidateSubtask) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = CandidateSubtask{Name: name}
		return nil
	}
	type plain CandidateSubtask
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = CandidateSubtask(p)
	return nil
}

// NormalizeCandidate converts raw untrusted JSON into a canonical Project
// draft: required top-level fields verified, every nested field defaulted.
// The draft has no ID, owner, or timestamps; CreateProject assigns those.
// This is the trust boundary with the extraction collaborator, so any shape
// problem is reported as ErrMalformedStructure.
func NormalizeCandidate(raw []byte) (*Project, error) {
	var shape any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	if err := compiledCandidateSchema.Validate(shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}

	var c Candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
	}
	return c.Normalize(), nil
}

// Normalize produces the canonical Project draft from a candidate tree. Pure
// transformation, no side effects.
func (c *Candidate) Normalize() *Project {
	p := &Project{
		Title:       strings.TrimSpace(c.Title),
		Description: strings.TrimSpace(c.Description),
		MainTasks:   make([]MainTask, 0, len(c.MainTasks)),
	}
	for _, ct := range c.MainTasks {
		task := MainTask{
			Name:        strings.TrimSpace(ct.Name),
			Description: strings.TrimSpace(ct.Description),
			Status:      defaultTaskStatus(ct.Status),
			Priority:    defaultPriority(ct.Priority),
			Comments:    []Comment{},
			Subtasks:    make([]Subtask, 0, len(ct.Subtasks)),
		}
		for _, cs := range ct.Subtasks {
			task.Subtasks = append(task.Subtasks, Subtask{
				Name:        strings.TrimSpace(cs.Name),
				Description: strings.TrimSpace(cs.Description),
				Status:      defaultTaskStatus(cs.Status),
				Priority:    defaultPriority(cs.Priority),
				Comments:    []Comment{},
			})
		}
		p.MainTasks = append(p.MainTasks, task)
	}
	return p
}

// defaultTaskStatus coerces unknown or empty values to the default rather
// than rejecting them; this side of the boundary never trusts enum fields.
func defaultTaskStatus(s string) string {
	if ValidTaskStatus(s) {
		return s
	}
	return TaskStatusNotStarted
}

func defaultPriority(s string) string {
	if ValidPriority(s) {
		return s
	}
	return PriorityMedium
}
