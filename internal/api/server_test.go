package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskdeck/taskdeck/internal/extract"
	"github.com/taskdeck/taskdeck/internal/pdftext"
	"github.com/taskdeck/taskdeck/internal/project"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/testutil"
)

const (
	aliceToken = "tok-alice"
	bobToken   = "tok-bob"
)

// stubExtractor returns a canned candidate payload or error.
type stubExtractor struct {
	raw []byte
	err error
}

func (s stubExtractor) ExtractStructure(context.Context, string) ([]byte, error) {
	return s.raw, s.err
}

// stubPDFText returns canned document text or error.
type stubPDFText struct {
	text string
	err  error
}

func (s stubPDFText) Extract(context.Context, string) (string, error) {
	return s.text, s.err
}

func newTestServer(t *testing.T, extractor StructureExtractor, pdfText TextExtractor) *httptest.Server {
	t.Helper()
	svc := project.NewService(store.NewMemory(), testutil.DiscardLogger())
	srv := NewServer(Deps{
		Service:   svc,
		Extractor: extractor,
		PDFText:   pdfText,
		Auth:      NewTokenAuth(map[string]string{aliceToken: "alice", bobToken: "bob"}),
		Logger:    testutil.DiscardLogger(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, method, url, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func createProject(t *testing.T, ts *httptest.Server, token, title string, taskNames ...string) string {
	t.Helper()
	tasks := make([]map[string]any, 0, len(taskNames))
	for _, name := range taskNames {
		tasks = append(tasks, map[string]any{"name": name})
	}
	status, env := doRequest(t, http.MethodPost, ts.URL+"/api/v1/projects", token, map[string]any{
		"title":     title,
		"mainTasks": tasks,
	})
	if status != http.StatusCreated || !env.OK {
		t.Fatalf("create project: status=%d env=%+v", status, env)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode created project: %v", err)
	}
	return created.ID
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, stubExtractor{}, stubPDFText{})

	t.Run("missing token is rejected", func(t *testing.T) {
		status, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects", "", nil)
		if status != http.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		status, _ := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects", "bogus", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", status)
		}
	})

	t.Run("health does not require auth", func(t *testing.T) {
		status, env := doRequest(t, http.MethodGet, ts.URL+"/healthz", "", nil)
		if status != http.StatusOK || !env.OK {
			t.Errorf("got status=%d env=%+v", status, env)
		}
	})
}

func TestProjectEndpoints(t *testing.T) {
	ts := newTestServer(t, stubExtractor{}, stubPDFText{})
	id := createProject(t, ts, aliceToken, "Website", "Frontend", "Backend")

	t.Run("get returns the tree with completion", func(t *testing.T) {
		status, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects/"+id, aliceToken, nil)
		if status != http.StatusOK {
			t.Fatalf("got status %d", status)
		}
		var got struct {
			Title                string `json:"title"`
			CompletionPercentage *int   `json:"completionPercentage"`
			MainTasks            []struct {
				Name string `json:"name"`
			} `json:"mainTasks"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Title != "Website" || len(got.MainTasks) != 2 {
			t.Errorf("unexpected project: %+v", got)
		}
		if got.CompletionPercentage == nil || *got.CompletionPercentage != 0 {
			t.Errorf("completionPercentage missing or wrong: %v", got.CompletionPercentage)
		}
	})

	t.Run("other owner sees not found", func(t *testing.T) {
		status, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects/"+id, bobToken, nil)
		if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPut, ts.URL+"/api/v1/projects/"+id, aliceToken, map[string]any{
			"description": "relaunch",
		})
		if status != http.StatusOK {
			t.Fatalf("got status %d: %+v", status, env)
		}
		var got struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		json.Unmarshal(env.Data, &got)
		if got.Title != "Website" || got.Description != "relaunch" {
			t.Errorf("unexpected project after update: %+v", got)
		}
	})

	t.Run("missing title on create", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPost, ts.URL+"/api/v1/projects", aliceToken, map[string]any{})
		if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("delete then get", func(t *testing.T) {
		doomed := createProject(t, ts, aliceToken, "Doomed")
		status, _ := doRequest(t, http.MethodDelete, ts.URL+"/api/v1/projects/"+doomed, aliceToken, nil)
		if status != http.StatusOK {
			t.Fatalf("delete: got status %d", status)
		}
		status, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects/"+doomed, aliceToken, nil)
		if status != http.StatusNotFound {
			t.Errorf("get after delete: got status %d", status)
		}
	})
}

func TestListEndpoint(t *testing.T) {
	ts := newTestServer(t, stubExtractor{}, stubPDFText{})
	for i := 0; i < 5; i++ {
		createProject(t, ts, aliceToken, fmt.Sprintf("Project %d", i))
	}
	createProject(t, ts, bobToken, "Bob's project")

	t.Run("pagination envelope", func(t *testing.T) {
		status, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects?page=2&limit=2", aliceToken, nil)
		if status != http.StatusOK {
			t.Fatalf("got status %d", status)
		}
		var got struct {
			Projects   []json.RawMessage `json:"projects"`
			Pagination struct {
				Page  int   `json:"page"`
				Limit int   `json:"limit"`
				Total int64 `json:"total"`
				Pages int64 `json:"pages"`
			} `json:"pagination"`
		}
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got.Projects) != 2 || got.Pagination.Total != 5 || got.Pagination.Pages != 3 {
			t.Errorf("unexpected page: len=%d pagination=%+v", len(got.Projects), got.Pagination)
		}
	})

	t.Run("invalid query parameters are rejected", func(t *testing.T) {
		for _, query := range []string{"page=0", "page=x", "limit=500", "status=bogus", "sortBy=bogus", "sortOrder=sideways"} {
			status, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects?"+query, aliceToken, nil)
			if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("%s: got status=%d code=%q", query, status, env.Error.Code)
			}
		}
	})
}

func TestTaskEndpoints(t *testing.T) {
	ts := newTestServer(t, stubExtractor{}, stubPDFText{})
	id := createProject(t, ts, aliceToken, "P", "First", "Second")
	base := ts.URL + "/api/v1/projects/" + id + "/tasks"

	t.Run("add task requires a name", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPost, base, aliceToken, map[string]any{"description": "no name"})
		if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("add and update by index", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPost, base, aliceToken, map[string]any{"name": "Third", "priority": "high"})
		if status != http.StatusCreated {
			t.Fatalf("add: got status %d: %+v", status, env)
		}
		status, env = doRequest(t, http.MethodPut, base+"/2", aliceToken, map[string]any{"status": "completed"})
		if status != http.StatusOK {
			t.Fatalf("update: got status %d: %+v", status, env)
		}
		var task struct {
			Name     string `json:"name"`
			Status   string `json:"status"`
			Priority string `json:"priority"`
		}
		json.Unmarshal(env.Data, &task)
		if task.Name != "Third" || task.Status != "completed" || task.Priority != "high" {
			t.Errorf("unexpected task: %+v", task)
		}
	})

	t.Run("non-numeric index", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPut, base+"/abc", aliceToken, map[string]any{})
		if status != http.StatusBadRequest || env.Error.Code != "INVALID_TASK_INDEX" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("out-of-range index", func(t *testing.T) {
		status, env := doRequest(t, http.MethodDelete, base+"/99", aliceToken, nil)
		if status != http.StatusBadRequest || env.Error.Code != "INVALID_TASK_INDEX" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("subtasks and comments", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPost, base+"/0/subtasks", aliceToken, map[string]any{"name": "Draft"})
		if status != http.StatusCreated {
			t.Fatalf("add subtask: got status %d: %+v", status, env)
		}
		status, env = doRequest(t, http.MethodPost, base+"/0/subtasks/0/comments", aliceToken, map[string]any{
			"author": "Alice", "content": "LGTM",
		})
		if status != http.StatusCreated {
			t.Fatalf("add comment: got status %d: %+v", status, env)
		}
		var comments []struct {
			Author  string `json:"author"`
			Content string `json:"content"`
		}
		json.Unmarshal(env.Data, &comments)
		if len(comments) != 1 || comments[0].Author != "Alice" {
			t.Errorf("unexpected comments: %+v", comments)
		}

		status, env = doRequest(t, http.MethodGet, base+"/0/subtasks/0/comments", aliceToken, nil)
		if status != http.StatusOK {
			t.Fatalf("list comments: got status %d", status)
		}
		json.Unmarshal(env.Data, &comments)
		if len(comments) != 1 || comments[0].Content != "LGTM" {
			t.Errorf("unexpected comments: %+v", comments)
		}

		status, env = doRequest(t, http.MethodPut, base+"/0/subtasks/9", aliceToken, map[string]any{})
		if status != http.StatusBadRequest || env.Error.Code != "INVALID_SUBTASK_INDEX" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("mutating another owner's project", func(t *testing.T) {
		status, env := doRequest(t, http.MethodPost, base, bobToken, map[string]any{"name": "Sneaky"})
		if status != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})
}

func uploadPDF(t *testing.T, ts *httptest.Server, token, field, filename string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 fake"))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/projects/upload", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("happy path builds a project from the candidate", func(t *testing.T) {
		candidate := `{"title": "From PDF", "mainTasks": [{"name": "T", "subtasks": ["S"]}]}`
		ts := newTestServer(t, stubExtractor{raw: []byte(candidate)}, stubPDFText{text: "doc text"})

		status, env := uploadPDF(t, ts, aliceToken, "pdf", "plan.pdf")
		if status != http.StatusCreated || !env.OK {
			t.Fatalf("got status=%d env=%+v", status, env)
		}
		var got struct {
			Title     string `json:"title"`
			MainTasks []struct {
				Subtasks []struct {
					Name string `json:"name"`
				} `json:"subtasks"`
			} `json:"mainTasks"`
		}
		json.Unmarshal(env.Data, &got)
		if got.Title != "From PDF" || len(got.MainTasks) != 1 || got.MainTasks[0].Subtasks[0].Name != "S" {
			t.Errorf("unexpected project: %+v", got)
		}
	})

	t.Run("requires auth", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{}, stubPDFText{})
		status, _ := uploadPDF(t, ts, "bogus", "pdf", "plan.pdf")
		if status != http.StatusUnauthorized {
			t.Errorf("got status %d, want 401", status)
		}
	})

	t.Run("rejects non-pdf filenames", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{}, stubPDFText{})
		status, env := uploadPDF(t, ts, aliceToken, "pdf", "notes.txt")
		if status != http.StatusBadRequest || env.Error.Code != "INVALID_FILE_TYPE" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("rejects missing file field", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{}, stubPDFText{})
		status, env := uploadPDF(t, ts, aliceToken, "document", "plan.pdf")
		if status != http.StatusBadRequest || env.Error.Code != "NO_FILE_UPLOADED" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("image-only pdf", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{}, stubPDFText{err: pdftext.ErrNoText})
		status, env := uploadPDF(t, ts, aliceToken, "pdf", "scan.pdf")
		if status != http.StatusBadRequest || env.Error.Code != "NO_EXTRACTABLE_TEXT" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("extraction service failure", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{err: fmt.Errorf("%w: boom", extract.ErrService)}, stubPDFText{text: "doc"})
		status, env := uploadPDF(t, ts, aliceToken, "pdf", "plan.pdf")
		if status != http.StatusBadGateway || env.Error.Code != "EXTRACTION_FAILED" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("malformed candidate", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{raw: []byte(`{"mainTasks": []}`)}, stubPDFText{text: "doc"})
		status, env := uploadPDF(t, ts, aliceToken, "pdf", "plan.pdf")
		if status != http.StatusUnprocessableEntity || env.Error.Code != "MALFORMED_STRUCTURE" {
			t.Errorf("got status=%d code=%q", status, env.Error.Code)
		}
	})

	t.Run("no project persists after a failed chain", func(t *testing.T) {
		ts := newTestServer(t, stubExtractor{raw: []byte(`{"mainTasks": []}`)}, stubPDFText{text: "doc"})
		uploadPDF(t, ts, aliceToken, "pdf", "plan.pdf")

		_, env := doRequest(t, http.MethodGet, ts.URL+"/api/v1/projects", aliceToken, nil)
		var got struct {
			Pagination struct {
				Total int64 `json:"total"`
			} `json:"pagination"`
		}
		json.Unmarshal(env.Data, &got)
		if got.Pagination.Total != 0 {
			t.Errorf("failed upload left %d projects behind", got.Pagination.Total)
		}
	})
}

func TestTokenAuth(t *testing.T) {
	auth := NewTokenAuth(map[string]string{"secret": "u1"})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	if _, err := auth.Authenticate(req); err == nil {
		t.Error("missing header should fail")
	}

	req.Header.Set("Authorization", "Basic secret")
	if _, err := auth.Authenticate(req); err == nil {
		t.Error("non-bearer scheme should fail")
	}

	req.Header.Set("Authorization", "Bearer secret")
	owner, err := auth.Authenticate(req)
	if err != nil || owner != "u1" {
		t.Errorf("got (%q, %v), want (u1, nil)", owner, err)
	}
}
