package project

import (
	"fmt"
	"strconv"
)

// ParseTaskIndex parses a positional main-task address. Anything that is not
// a non-negative integer is rejected with ErrInvalidTaskIndex; bounds against
// the loaded aggregate are checked separately by the mutation engine.
func ParseTaskIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTaskIndex, s)
	}
	return n, nil
}

// ParseSubtaskIndex parses a positional subtask address.
func ParseSubtaskIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSubtaskIndex, s)
	}
	return n, nil
}

// resolveTask validates a main-task index against the aggregate snapshot and
// resolves it to the stable entity ID. Mutations are applied by ID afterwards
// so the positional address is only load-bearing during validation.
func (p *Project) resolveTask(index int) (string, error) {
	if index < 0 || index >= len(p.MainTasks) {
		return "", fmt.Errorf("%w: %d (project has %d tasks)", ErrInvalidTaskIndex, index, len(p.MainTasks))
	}
	return p.MainTasks[index].ID, nil
}

// resolveSubtask validates a (task, subtask) index pair and resolves both to
// entity IDs.
func (p *Project) resolveSubtask(taskIndex, subtaskIndex int) (string, string, error) {
	taskID, err := p.resolveTask(taskIndex)
	if err != nil {
		return "", "", err
	}
	subtasks := p.MainTasks[taskIndex].Subtasks
	if subtaskIndex < 0 || subtaskIndex >= len(subtasks) {
		return "", "", fmt.Errorf("%w: %d (task has %d subtasks)", ErrInvalidSubtaskIndex, subtaskIndex, len(subtasks))
	}
	return taskID, subtasks[subtaskIndex].ID, nil
}

// taskByID returns the main task with the given ID, or nil.
func (p *Project) taskByID(id string) *MainTask {
	for i := range p.MainTasks {
		if p.MainTasks[i].ID == id {
			return &p.MainTasks[i]
		}
	}
	return nil
}

// subtaskByID returns the subtask with the given ID within a task, or nil.
func (t *MainTask) subtaskByID(id string) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}
