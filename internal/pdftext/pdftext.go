// Package pdftext extracts plain text from PDF files by shelling out to
// pdftotext (poppler-utils). The PDF boundary is a black box to the rest of
// the system: text in, or a typed error out.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// LookPath resolves the pdftotext binary. It can be replaced in tests
// together with CommandContext.
var LookPath = exec.LookPath

// ErrNoText indicates the PDF parsed but yielded no extractable text, which
// usually means an image-only scan.
var ErrNoText = errors.New("the PDF appears to be image-based or contains no extractable text")

// Extractor extracts text with the pdftotext binary.
type Extractor struct{}

// NewExtractor returns a pdftotext-backed extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Available checks if the pdftotext command exists in PATH.
func (e *Extractor) Available() bool {
	_, err := LookPath("pdftotext")
	return err == nil
}

// Extract runs pdftotext over the file at path and returns its text content.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if !e.Available() {
		return "", errors.New("pdftotext not found in PATH (install poppler-utils)")
	}

	cmd := CommandContext(ctx, "pdftotext", "-layout", path, "-")
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("pdf text extraction aborted: %w", ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("failed to parse PDF: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("failed to run pdftotext: %w", err)
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
