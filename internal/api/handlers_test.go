package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/omnidocs/docschat/internal/answer"
	"github.com/omnidocs/docschat/internal/chat"
	"github.com/omnidocs/docschat/internal/registry"
)

// fakeEngine returns canned responses and errors for the HTTP layer tests.
type fakeEngine struct {
	topics    []string
	resp      answer.ChatResponse
	err       error
	lastQuery string
	lastTopic string
}

func (e *fakeEngine) ListTopics() []string { return e.topics }

func (e *fakeEngine) Status() chat.Status {
	return chat.Status{AvailableTopics: e.topics}
}

func (e *fakeEngine) HandleQuery(ctx context.Context, query, topic string) (answer.ChatResponse, error) {
	e.lastQuery, e.lastTopic = query, topic
	if e.err != nil {
		return answer.ChatResponse{}, e.err
	}
	return e.resp, nil
}

func newTestHandler(e *fakeEngine) http.Handler {
	return NewHandler(e, "test")
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
}

func TestRoot(t *testing.T) {
	h := newTestHandler(&fakeEngine{topics: []string{"IOT", "Billing"}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body struct {
		AvailableTopics []string          `json:"available_topics"`
		Endpoints       map[string]string `json:"endpoints"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.AvailableTopics) != 2 || body.AvailableTopics[0] != "IOT" || body.AvailableTopics[1] != "Billing" {
		t.Errorf("available_topics = %v, want [IOT Billing] from the status surface", body.AvailableTopics)
	}
	if _, ok := body.Endpoints["/api/chat"]; !ok {
		t.Errorf("endpoints = %v, want /api/chat listed", body.Endpoints)
	}
}

func TestTopics(t *testing.T) {
	h := newTestHandler(&fakeEngine{topics: []string{"IOT", "Billing", "Firmware"}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/topics", nil))

	var body struct {
		Topics []string `json:"topics"`
		Count  int      `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Count != 3 || len(body.Topics) != 3 {
		t.Errorf("body = %+v, want 3 topics", body)
	}
	if body.Topics[0] != "IOT" {
		t.Errorf("topics[0] = %q, want insertion order preserved", body.Topics[0])
	}
}

func TestChat(t *testing.T) {
	e := &fakeEngine{
		topics: []string{"IOT"},
		resp: answer.ChatResponse{
			Topic:      "IOT",
			Response:   "Point the device at the broker.",
			Confidence: 80,
			Source:     answer.SourceKeywordMatch,
		},
	}
	h := newTestHandler(e)

	body := `{"query":"How do I configure MQTT?","topic":"IOT"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp answer.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Source != answer.SourceKeywordMatch || resp.Confidence != 80 {
		t.Errorf("response = %+v, want keyword_match with confidence 80", resp)
	}
	if e.lastQuery != "How do I configure MQTT?" || e.lastTopic != "IOT" {
		t.Errorf("engine received query=%q topic=%q", e.lastQuery, e.lastTopic)
	}
}

func TestChat_EmptyQuery(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"  "}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestChat_InvalidBody(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestChat_UnknownTopic(t *testing.T) {
	e := &fakeEngine{
		topics: []string{"IOT", "Billing"},
		err:    &registry.NotFoundError{Name: "Shipping", Valid: []string{"IOT", "Billing"}},
	}
	h := newTestHandler(e)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"query":"q","topic":"Shipping"}`)))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	var body struct {
		Error struct {
			Message     string   `json:"message"`
			ValidTopics []string `json:"valid_topics"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Error.ValidTopics) != 2 {
		t.Errorf("valid_topics = %v, want both topics", body.Error.ValidTopics)
	}
	if !strings.Contains(body.Error.Message, "Shipping") {
		t.Errorf("message = %q, want it to name the unknown topic", body.Error.Message)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://chat.example")
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
