package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/secondbrain/internal/prompt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, retries int) *HTTPClient {
	return NewHTTPClient(Options{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxTokens:  256,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}, testLogger())
}

func chatOK(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
	return body
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write(chatOK("the answer"))
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/v1", 0)
	text, err := c.Complete(context.Background(), prompt.Request{System: "sys", User: "usr"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "the answer" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "usr" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.Stream {
		t.Error("stream must be disabled")
	}
}

func TestCompleteRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(chatOK("recovered"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	text, err := c.Complete(context.Background(), prompt.Request{User: "u"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q", text)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Complete(context.Background(), prompt.Request{User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("error type = %T", err)
	}
	if me.Status != http.StatusBadRequest || me.Detail != "bad prompt" {
		t.Errorf("ModelError = %+v", me)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", calls.Load())
	}
}

func TestCompleteRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	_, err := c.Complete(context.Background(), prompt.Request{User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls.Load())
	}
}

func TestCompleteTransportError(t *testing.T) {
	c := testClient("http://127.0.0.1:1", 0)
	_, err := c.Complete(context.Background(), prompt.Request{User: "u"})
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T: %v", err, err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.Complete(context.Background(), prompt.Request{User: "u"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&TransportError{Err: errors.New("conn refused")}, true},
		{&ModelError{Status: http.StatusTooManyRequests}, true},
		{&ModelError{Status: http.StatusBadGateway}, true},
		{&ModelError{Status: http.StatusBadRequest}, false},
		{&ModelError{Status: http.StatusUnauthorized}, false},
		{errors.New("other"), false},
	}
	for _, tc := range tests {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
