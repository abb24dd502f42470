package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omnidocs/docschat/internal/content"
	"github.com/omnidocs/docschat/internal/selector"
)

// Source identifies how an answer was produced.
type Source string

const (
	// SourceKeywordMatch marks answers grounded in a confident keyword match.
	SourceKeywordMatch Source = "keyword_match"
	// SourceLLMFallback marks best-effort answers from weak context, and
	// apology responses after a completion failure.
	SourceLLMFallback Source = "llm_fallback"
	// SourceNoMatch marks answers produced with no lexical overlap at all.
	SourceNoMatch Source = "no_match"
)

// apologyText is returned verbatim when the completion API fails; the caller
// always receives an answer.
const apologyText = "Sorry, I couldn't generate an answer right now. Please try again in a moment."

// ChatResponse is the final per-query result handed back to the transport layer.
type ChatResponse struct {
	Topic      string             `json:"topic"`
	Response   string             `json:"response"`
	Confidence int                `json:"confidence"`
	Source     Source             `json:"source"`
	Images     []content.ImageRef `json:"images"`
}

// Completer is the completion API surface the assembler needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Assembler turns a topic selection into a final answer via the completion API.
type Assembler struct {
	completer Completer
	threshold int
	// answerBelowThreshold controls whether sub-threshold selections still go
	// to the model for a best-effort answer (the default) or short-circuit to
	// a static reply without a completion call.
	answerBelowThreshold bool
}

// New creates an Assembler. A non-positive threshold falls back to the
// selector's default.
func New(completer Completer, threshold int, answerBelowThreshold bool) *Assembler {
	if threshold <= 0 {
		threshold = selector.DefaultThreshold
	}
	return &Assembler{
		completer:            completer,
		threshold:            threshold,
		answerBelowThreshold: answerBelowThreshold,
	}
}

// Assemble builds the prompt for the selection, invokes the completion API,
// and packages the ChatResponse. Completion failures are swallowed into an
// apology response; Assemble never fails.
func (a *Assembler) Assemble(ctx context.Context, query string, sel selector.Selection, availableTopics []string) ChatResponse {
	source := a.classify(sel)

	if sel.BelowThreshold && !a.answerBelowThreshold {
		return ChatResponse{
			Topic:      sel.TopicName,
			Response:   staticNoDocsReply(availableTopics),
			Confidence: sel.Confidence,
			Source:     SourceNoMatch,
			Images:     []content.ImageRef{},
		}
	}

	// Zero overlap means the excerpt is meaningless; ask the model for a
	// graceful redirect instead of feeding it unrelated context.
	var prompt string
	if source == SourceNoMatch || sel.Excerpt == "" {
		prompt = buildFallbackPrompt(query, availableTopics)
	} else {
		prompt = buildPrompt(query, sel)
	}

	text, err := a.completer.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		slog.Warn("completion failed, returning apology", "topic", sel.TopicName, "error", err)
		return ChatResponse{
			Topic:      sel.TopicName,
			Response:   apologyText,
			Confidence: 0,
			Source:     SourceLLMFallback,
			Images:     []content.ImageRef{},
		}
	}

	images := sel.Document.Images
	if source == SourceNoMatch || images == nil {
		images = []content.ImageRef{}
	}

	return ChatResponse{
		Topic:      sel.TopicName,
		Response:   text,
		Confidence: sel.Confidence,
		Source:     source,
		Images:     images,
	}
}

// classify maps a selection onto the closed Source enum: confident matches
// are keyword_match, weak overlap is llm_fallback, zero overlap is no_match.
func (a *Assembler) classify(sel selector.Selection) Source {
	switch {
	case sel.Confidence >= a.threshold:
		return SourceKeywordMatch
	case sel.Confidence > 0:
		return SourceLLMFallback
	default:
		return SourceNoMatch
	}
}

func staticNoDocsReply(availableTopics []string) string {
	return fmt.Sprintf(
		"I don't have documentation that covers that. Available topics: %s. Try rephrasing your question or pick one of these topics.",
		strings.Join(availableTopics, ", "))
}
