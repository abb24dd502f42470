package groq

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockGroq returns a Client wired to a local server mimicking the
// OpenAI-compatible chat completions endpoint.
func mockGroq(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithBaseURL("test-key", srv.URL, "", time.Second)
}

func TestComplete(t *testing.T) {
	c := mockGroq(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != DefaultModel {
			t.Errorf("model = %q, want %q", req.Model, DefaultModel)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v, want system then user", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"message":{"role":"assistant","content":"Point the device at the broker."}}]}`)
	})

	got, err := c.Complete(t.Context(), "be concise", "How do I configure MQTT?")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Point the device at the broker." {
		t.Errorf("Complete() = %q, want assistant content", got)
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	c := mockGroq(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit exceeded","type":"quota"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Complete(t.Context(), "sys", "prompt")
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("Complete() error = %v, want CompletionError", err)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	c := mockGroq(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","choices":[]}`)
	})

	_, err := c.Complete(t.Context(), "sys", "prompt")
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("Complete() error = %v, want CompletionError", err)
	}
}
