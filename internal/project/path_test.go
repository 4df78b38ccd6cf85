package project

import (
	"errors"
	"testing"
)

func TestParseTaskIndex(t *testing.T) {
	t.Run("valid indices parse", func(t *testing.T) {
		for raw, want := range map[string]int{"0": 0, "7": 7, "42": 42} {
			got, err := ParseTaskIndex(raw)
			if err != nil {
				t.Errorf("ParseTaskIndex(%q): unexpected error %v", raw, err)
			}
			if got != want {
				t.Errorf("ParseTaskIndex(%q) = %d, want %d", raw, got, want)
			}
		}
	})

	t.Run("invalid indices are rejected", func(t *testing.T) {
		for _, raw := range []string{"-1", "abc", "1.5", "", " 1"} {
			if _, err := ParseTaskIndex(raw); !errors.Is(err, ErrInvalidTaskIndex) {
				t.Errorf("ParseTaskIndex(%q): got %v, want ErrInvalidTaskIndex", raw, err)
			}
		}
	})
}

func TestParseSubtaskIndex(t *testing.T) {
	if _, err := ParseSubtaskIndex("x"); !errors.Is(err, ErrInvalidSubtaskIndex) {
		t.Errorf("got %v, want ErrInvalidSubtaskIndex", err)
	}
	if n, err := ParseSubtaskIndex("3"); err != nil || n != 3 {
		t.Errorf("got (%d, %v), want (3, nil)", n, err)
	}
}

func TestResolve(t *testing.T) {
	p := &Project{MainTasks: []MainTask{
		{ID: "t0", Subtasks: []Subtask{{ID: "s0"}, {ID: "s1"}}},
		{ID: "t1"},
	}}

	t.Run("task resolves to its ID", func(t *testing.T) {
		id, err := p.resolveTask(1)
		if err != nil || id != "t1" {
			t.Errorf("got (%q, %v), want (t1, nil)", id, err)
		}
	})

	t.Run("task index out of range", func(t *testing.T) {
		if _, err := p.resolveTask(2); !errors.Is(err, ErrInvalidTaskIndex) {
			t.Errorf("got %v, want ErrInvalidTaskIndex", err)
		}
	})

	t.Run("subtask resolves both IDs", func(t *testing.T) {
		taskID, subtaskID, err := p.resolveSubtask(0, 1)
		if err != nil || taskID != "t0" || subtaskID != "s1" {
			t.Errorf("got (%q, %q, %v)", taskID, subtaskID, err)
		}
	})

	t.Run("subtask index out of range", func(t *testing.T) {
		if _, _, err := p.resolveSubtask(0, 2); !errors.Is(err, ErrInvalidSubtaskIndex) {
			t.Errorf("got %v, want ErrInvalidSubtaskIndex", err)
		}
	})

	t.Run("bad task index reported before subtask index", func(t *testing.T) {
		if _, _, err := p.resolveSubtask(5, 0); !errors.Is(err, ErrInvalidTaskIndex) {
			t.Errorf("got %v, want ErrInvalidTaskIndex", err)
		}
	})
}
