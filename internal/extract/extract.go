// Package extract calls an external generative AI endpoint to turn raw
// document text into a candidate project tree. The response is untrusted:
// this package only recovers a JSON payload from the model output and leaves
// shape validation to the normalizer immediately downstream.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrService covers upstream failures: transport errors, non-200 responses,
// timeouts, and responses no JSON object could be recovered from.
var ErrService = errors.New("error processing with AI service")

// DefaultTimeout bounds a single extraction call when the caller's context
// carries no deadline.
const DefaultTimeout = 30 * time.Second

// Client calls a generateContent-style endpoint. All configuration is
// explicit; there is no ambient singleton.
type Client struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient returns a client for the given endpoint. A zero timeout means
// DefaultTimeout.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractStructure sends the document text to the model and returns the raw
// candidate project JSON. Callers must treat the result as untrusted.
func (c *Client) ExtractStructure(ctx context.Context, text string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(text)}}}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: extraction timed out", ErrService)
		}
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrService, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("%w: unparseable response", ErrService)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrService)
	}

	jsonData, err := extractJSON([]byte(gr.Candidates[0].Content.Parts[0].Text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	return jsonData, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`You are an AI assistant. Given the following text, extract a project structure in the exact JSON format below:
{
  "title": "Project Title",
  "description": "Brief project description",
  "mainTasks": [
    {
      "name": "Main Task Name",
      "description": "Task description",
      "subtasks": [
        {
          "name": "Subtask 1"
        }
      ]
    }
  ]
}
Ensure all fields are included. Extract meaningful task and subtask names from the content.
Return ONLY the JSON, no markdown formatting or explanation.

Text: %s`, text)
}

// extractJSON defensively recovers a JSON object from potentially noisy model
// output.
func extractJSON(data []byte) ([]byte, error) {
	str := stripMarkdownCodeBlocks(string(data))

	if json.Valid([]byte(str)) {
		return []byte(str), nil
	}

	// Find JSON object boundaries as fallback
	start := strings.Index(str, "{")
	end := strings.LastIndex(str, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, errors.New("no JSON object found in response")
	}

	extracted := str[start : end+1]
	if !json.Valid([]byte(extracted)) {
		return nil, errors.New("extracted content is not valid JSON")
	}
	return []byte(extracted), nil
}

// stripMarkdownCodeBlocks removes code fence markers from a string.
func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if cut, found := strings.CutPrefix(s, "```json"); found {
		s = cut
	} else if cut, found := strings.CutPrefix(s, "```"); found {
		s = cut
	}
	if cut, found := strings.CutSuffix(s, "```"); found {
		s = cut
	}
	return strings.TrimSpace(s)
}
