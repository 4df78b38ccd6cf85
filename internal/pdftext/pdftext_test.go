package pdftext

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/taskdeck/taskdeck/internal/testutil"
)

func mockBinary(t *testing.T, output string) {
	t.Helper()
	origCmd := CommandContext
	origLook := LookPath
	CommandContext = testutil.MockCommandFunc(output)
	LookPath = func(string) (string, error) { return "/usr/bin/pdftotext", nil }
	t.Cleanup(func() {
		CommandContext = origCmd
		LookPath = origLook
	})
}

func TestExtract(t *testing.T) {
	t.Run("returns trimmed command output", func(t *testing.T) {
		mockBinary(t, "  Project kickoff notes\nSecond line  ")
		got, err := NewExtractor().Extract(context.Background(), "doc.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Project kickoff notes\nSecond line" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty output means no extractable text", func(t *testing.T) {
		mockBinary(t, "   \n\t  ")
		_, err := NewExtractor().Extract(context.Background(), "scan.pdf")
		if !errors.Is(err, ErrNoText) {
			t.Errorf("got %v, want ErrNoText", err)
		}
	})

	t.Run("missing binary is reported", func(t *testing.T) {
		orig := LookPath
		LookPath = func(string) (string, error) { return "", exec.ErrNotFound }
		t.Cleanup(func() { LookPath = orig })

		_, err := NewExtractor().Extract(context.Background(), "doc.pdf")
		if err == nil {
			t.Fatal("expected an error when pdftotext is absent")
		}
		if NewExtractor().Available() {
			t.Error("Available should report false")
		}
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		mockBinary(t, "text")
		orig := CommandContext
		CommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
			return exec.CommandContext(ctx, "sleep", "10")
		}
		t.Cleanup(func() { CommandContext = orig })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewExtractor().Extract(ctx, "doc.pdf"); err == nil {
			t.Fatal("expected an error from a cancelled context")
		}
	})
}
