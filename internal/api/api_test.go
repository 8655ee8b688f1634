package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/secondbrain/internal/daily"
	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/prompt"
	"github.com/starford/secondbrain/internal/testutil"
	"github.com/starford/secondbrain/internal/vault"
	"github.com/starford/secondbrain/internal/writer"
)

type fakeClient struct {
	text string
}

func (f *fakeClient) Complete(_ context.Context, _ prompt.Request) (string, error) {
	return f.text, nil
}

// testEnv sets up a temp vault, journal, engine, and router for testing.
// An empty token means disabled auth mode.
func testEnv(t *testing.T, authToken string) (*vault.Vault, http.Handler) {
	t.Helper()

	v := testutil.TestVault(t)
	logger := testutil.Logger()
	db := testutil.TestJournal(t)

	dm := daily.NewManager(v, daily.Config{
		Enabled:     true,
		Folder:      "Daily Notes",
		FileFormats: []string{"{full_date}.md"},
		DateFormats: map[string]string{"full_date": "2006-01-02"},
		Template:    "# {full_date} ({weekday})\n\n## Highlights\n\n## Tasks\n",
	}, logger)

	eng := engine.New(v, dm,
		prompt.NewBuilder("system", 4000),
		&fakeClient{text: "api answer"},
		writer.New(v, "AI Responses", "## AI Analysis", "## Review", logger),
		db, nil,
		engine.Options{MinNoteLength: 10, WriteMode: "respond", ResponseFolder: "AI Responses"},
		logger)

	router := NewRouter(eng, db, authToken != "", authToken, nil)
	return v, router
}

func TestFindNotesEndpoint(t *testing.T) {
	v, router := testEnv(t, "")
	_ = v.Write("topics/Machine Learning.md", []byte("# ML\ncontent here"))

	req := httptest.NewRequest(http.MethodGet, "/notes/find?q=machine-learning", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp FindResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Matches) != 1 || resp.Matches[0] != "topics/Machine Learning.md" {
		t.Errorf("matches = %v", resp.Matches)
	}
}

func TestFindNotesRequiresQuery(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/notes/find", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProcessNoteEndpoint(t *testing.T) {
	v, router := testEnv(t, "")
	_ = v.Write("n.md", []byte("# Note\nwith enough content"))

	body, _ := json.Marshal(ProcessNoteRequest{Note: "n.md"})
	req := httptest.NewRequest(http.MethodPost, "/notes/process", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var outcome Outcome
	_ = json.Unmarshal(w.Body.Bytes(), &outcome)
	if outcome.Target != "AI Responses/SB_n.md" {
		t.Errorf("target = %q", outcome.Target)
	}
	if !v.Exists(outcome.Target) {
		t.Error("response file not written")
	}
}

func TestProcessNoteNotFound(t *testing.T) {
	_, router := testEnv(t, "")
	body, _ := json.Marshal(ProcessNoteRequest{Note: "missing.md"})
	req := httptest.NewRequest(http.MethodPost, "/notes/process", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProcessNoteTooShort(t *testing.T) {
	v, router := testEnv(t, "")
	_ = v.Write("tiny.md", []byte("x"))
	body, _ := json.Marshal(ProcessNoteRequest{Note: "tiny.md"})
	req := httptest.NewRequest(http.MethodPost, "/notes/process", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestQueryNoteEndpoint(t *testing.T) {
	v, router := testEnv(t, "")
	_ = v.Write("q.md", []byte("# Q\nquestionable content"))

	body, _ := json.Marshal(QueryNoteRequest{Note: "q.md", Question: "what?"})
	req := httptest.NewRequest(http.MethodPost, "/notes/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp AnswerResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Answer != "api answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
}

func TestDailyEndpoints(t *testing.T) {
	v, router := testEnv(t, "")

	// Ensure creates the note.
	req := httptest.NewRequest(http.MethodPost, "/daily/2025-04-28", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("ensure status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DailyResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Path != "Daily Notes/2025-04-28.md" || !resp.Created {
		t.Errorf("resp = %+v", resp)
	}
	if !v.Exists(resp.Path) {
		t.Error("daily note not created")
	}

	// Summary writes under the review heading.
	req = httptest.NewRequest(http.MethodPost, "/daily/2025-04-28/summary", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := v.Read(resp.Path)
	if !bytes.Contains(data, []byte("api answer")) {
		t.Errorf("summary missing:\n%s", data)
	}

	// Template refresh and restructure succeed on the existing note.
	for _, p := range []string{"/daily/2025-04-28/template", "/daily/2025-04-28/restructure"} {
		req = httptest.NewRequest(http.MethodPost, p, nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, body = %s", p, w.Code, w.Body.String())
		}
	}
}

func TestDailyBadDate(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/daily/april-fools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestResultsEndpoint(t *testing.T) {
	v, router := testEnv(t, "")
	_ = v.Write("n.md", []byte("# Note\nwith enough content"))

	body, _ := json.Marshal(ProcessNoteRequest{Note: "n.md"})
	req := httptest.NewRequest(http.MethodPost, "/notes/process", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("process status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/results?limit=5", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("results status = %d", w.Code)
	}
	var resp ResultsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Status != journal.StatusCompleted {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestAuthEnforced(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/notes/find?q=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes/find?q=x", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes/find?q=x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}
