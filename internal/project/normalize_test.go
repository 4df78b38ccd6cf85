package project

import (
	"errors"
	"testing"
)

func TestNormalizeCandidate(t *testing.T) {
	t.Run("subtask shorthand mixes strings and objects", func(t *testing.T) {
		raw := []byte(`{
			"title": "Website",
			"mainTasks": [
				{"name": "Frontend", "subtasks": ["Design", {"name": "Build", "priority": "high"}]}
			]
		}`)
		p, err := NormalizeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		subtasks := p.MainTasks[0].Subtasks
		if len(subtasks) != 2 {
			t.Fatalf("got %d subtasks, want 2", len(subtasks))
		}
		first := subtasks[0]
		if first.Name != "Design" || first.Status != TaskStatusNotStarted || first.Priority != PriorityMedium || first.Description != "" {
			t.Errorf("shorthand subtask not defaulted: %+v", first)
		}
		second := subtasks[1]
		if second.Name != "Build" || second.Priority != PriorityHigh {
			t.Errorf("object subtask lost fields: %+v", second)
		}
		if second.Status != TaskStatusNotStarted {
			t.Errorf("object subtask status not defaulted: %q", second.Status)
		}
	})

	t.Run("task fields are defaulted", func(t *testing.T) {
		raw := []byte(`{"title": "P", "mainTasks": [{"name": "Only name"}]}`)
		p, err := NormalizeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		task := p.MainTasks[0]
		if task.Description != "" || task.Status != TaskStatusNotStarted || task.Priority != PriorityMedium {
			t.Errorf("task not defaulted: %+v", task)
		}
		if task.Comments == nil || len(task.Comments) != 0 {
			t.Errorf("comments should default to empty sequence, got %v", task.Comments)
		}
	})

	t.Run("unknown enum values are coerced to defaults", func(t *testing.T) {
		raw := []byte(`{"title": "P", "mainTasks": [{"name": "T", "status": "donezo", "priority": "urgent"}]}`)
		p, err := NormalizeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.MainTasks[0].Status != TaskStatusNotStarted || p.MainTasks[0].Priority != PriorityMedium {
			t.Errorf("enum values not coerced: %+v", p.MainTasks[0])
		}
	})

	t.Run("missing title is malformed", func(t *testing.T) {
		if _, err := NormalizeCandidate([]byte(`{"mainTasks": []}`)); !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("got %v, want ErrMalformedStructure", err)
		}
	})

	t.Run("empty title is malformed", func(t *testing.T) {
		if _, err := NormalizeCandidate([]byte(`{"title": "", "mainTasks": []}`)); !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("got %v, want ErrMalformedStructure", err)
		}
	})

	t.Run("missing mainTasks is malformed", func(t *testing.T) {
		if _, err := NormalizeCandidate([]byte(`{"title": "P"}`)); !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("got %v, want ErrMalformedStructure", err)
		}
	})

	t.Run("empty mainTasks array is acceptable", func(t *testing.T) {
		p, err := NormalizeCandidate([]byte(`{"title": "P", "mainTasks": []}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.MainTasks) != 0 {
			t.Errorf("got %d tasks, want 0", len(p.MainTasks))
		}
	})

	t.Run("invalid JSON is malformed", func(t *testing.T) {
		if _, err := NormalizeCandidate([]byte(`{"title": `)); !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("got %v, want ErrMalformedStructure", err)
		}
	})

	t.Run("non-object root is malformed", func(t *testing.T) {
		if _, err := NormalizeCandidate([]byte(`["not", "a", "project"]`)); !errors.Is(err, ErrMalformedStructure) {
			t.Errorf("got %v, want ErrMalformedStructure", err)
		}
	})

	t.Run("names are trimmed", func(t *testing.T) {
		raw := []byte(`{"title": "  Spaced  ", "mainTasks": [{"name": " T ", "subtasks": [" S "]}]}`)
		p, err := NormalizeCandidate(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Title != "Spaced" || p.MainTasks[0].Name != "T" || p.MainTasks[0].Subtasks[0].Name != "S" {
			t.Errorf("fields not trimmed: %+v", p)
		}
	})
}
