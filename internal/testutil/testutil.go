// Package testutil provides shared helpers for taskdeck tests.
package testutil

import (
	"context"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/taskdeck/taskdeck/internal/project"
)

// DiscardLogger returns a logger that swallows all output.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard)
}

// MockCommandFunc creates a mock command constructor that outputs the given
// response. Usage: pdftext.CommandContext = testutil.MockCommandFunc(text)
func MockCommandFunc(output string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "-n", output)
	}
}

// Draft builds a project draft with one main task per name, suitable for
// Service.CreateProject.
func Draft(title string, taskNames ...string) *project.Project {
	tasks := make([]project.MainTask, 0, len(taskNames))
	for _, name := range taskNames {
		tasks = append(tasks, project.MainTask{Name: name})
	}
	return &project.Project{Title: title, MainTasks: tasks}
}
