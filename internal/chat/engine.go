package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omnidocs/docschat/internal/answer"
	"github.com/omnidocs/docschat/internal/registry"
	"github.com/omnidocs/docschat/internal/selector"
)

// Status is the health surface exposed to transports.
type Status struct {
	AvailableTopics []string `json:"available_topics"`
}

// Assembler is the answer-assembly surface the engine needs.
type Assembler interface {
	Assemble(ctx context.Context, query string, sel selector.Selection, availableTopics []string) answer.ChatResponse
}

// Engine is the retrieval-and-relevance pipeline behind every transport
// (HTTP, MCP, CLI): select the best topic for a query, then assemble an
// answer from its content.
type Engine struct {
	registry  *registry.Registry
	selector  *selector.Selector
	assembler Assembler
}

// NewEngine wires the pipeline components together.
func NewEngine(reg *registry.Registry, sel *selector.Selector, asm Assembler) *Engine {
	return &Engine{registry: reg, selector: sel, assembler: asm}
}

// ListTopics returns all registered topic names in sources order.
func (e *Engine) ListTopics() []string {
	return e.registry.List()
}

// Status reports the engine's availability surface.
func (e *Engine) Status() Status {
	return Status{AvailableTopics: e.registry.List()}
}

// HandleQuery answers a query, optionally pinned to a topic. The only error
// is an unknown requested topic (registry.NotFoundError); everything else
// degrades into the returned ChatResponse.
func (e *Engine) HandleQuery(ctx context.Context, query, topic string) (answer.ChatResponse, error) {
	if strings.TrimSpace(query) == "" {
		return answer.ChatResponse{}, fmt.Errorf("query must not be empty")
	}

	start := time.Now()
	log := slog.With("request_id", uuid.NewString())

	sel, err := e.selector.Select(ctx, query, topic)
	if err != nil {
		log.Info("query rejected", "topic", topic, "error", err)
		return answer.ChatResponse{}, err
	}

	resp := e.assembler.Assemble(ctx, query, sel, e.registry.List())

	log.Info("query answered",
		"topic", resp.Topic,
		"confidence", resp.Confidence,
		"source", resp.Source,
		"images", len(resp.Images),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
