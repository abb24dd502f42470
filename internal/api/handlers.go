package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/omnidocs/docschat/internal/answer"
	"github.com/omnidocs/docschat/internal/chat"
	"github.com/omnidocs/docschat/internal/registry"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Engine is the query surface the HTTP layer exposes.
type Engine interface {
	ListTopics() []string
	Status() chat.Status
	HandleQuery(ctx context.Context, query, topic string) (answer.ChatResponse, error)
}

type chatRequest struct {
	Query string `json:"query"`
	Topic string `json:"topic,omitempty"`
}

// NewHandler returns the HTTP handler for the chat API. The chat UI is served
// from another origin, so CORS is open (matching the service's public-read
// nature; there is no authenticated surface).
func NewHandler(engine Engine, version string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/", handleRoot(engine, version))
	r.Get("/api/topics", handleTopics(engine))
	r.Post("/api/chat", handleChat(engine))

	return cors.AllowAll().Handler(r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleRoot(engine Engine, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          "docschat is running",
			"version":          version,
			"available_topics": engine.Status().AvailableTopics,
			"endpoints": map[string]string{
				"/api/chat":   "POST - ask a question about the documentation",
				"/api/topics": "GET - list available topics",
			},
		})
	}
}

func handleTopics(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics := engine.ListTopics()
		writeJSON(w, http.StatusOK, map[string]any{
			"topics": topics,
			"count":  len(topics),
		})
	}
}

func handleChat(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		resp, err := engine.HandleQuery(r.Context(), req.Query, req.Topic)
		if err != nil {
			var nf *registry.NotFoundError
			if errors.As(err, &nf) {
				writeJSON(w, http.StatusNotFound, map[string]any{
					"error": map[string]any{
						"message":      nf.Error(),
						"type":         "invalid_request_error",
						"valid_topics": nf.Valid,
					},
				})
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "handling query: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
