package selector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/omnidocs/docschat/internal/content"
	"github.com/omnidocs/docschat/internal/registry"
	"github.com/omnidocs/docschat/internal/relevance"
)

// DefaultThreshold is the confidence below which a match is flagged so the
// answer step can mark the response as degraded.
const DefaultThreshold = 60

// fetchConcurrency bounds the fan-out when scoring every registered topic.
const fetchConcurrency = 4

// Fetcher is the content-fetching surface the selector needs.
type Fetcher interface {
	Fetch(ctx context.Context, topicName, pageID string) (content.Document, error)
}

// Selection is the chosen topic's relevance result plus the document it was
// scored against. BelowThreshold signals a weak (or absent) match; the
// pipeline still proceeds and degrades gracefully.
type Selection struct {
	relevance.Result
	Document       content.Document
	BelowThreshold bool
}

// Selector picks the topic most relevant to a query.
type Selector struct {
	registry  *registry.Registry
	fetcher   Fetcher
	scorer    *relevance.Scorer
	threshold int
}

// New creates a Selector. A non-positive threshold falls back to DefaultThreshold.
func New(reg *registry.Registry, fetcher Fetcher, scorer *relevance.Scorer, threshold int) *Selector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Selector{registry: reg, fetcher: fetcher, scorer: scorer, threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (s *Selector) Threshold() int { return s.threshold }

// Select scores the query against the requested topic, or against every
// registered topic when none is requested. An unknown requested topic is the
// only error; missing content or missing matches is a degraded Selection,
// not a failure.
func (s *Selector) Select(ctx context.Context, query, requested string) (Selection, error) {
	if requested != "" {
		return s.selectRequested(ctx, query, requested)
	}
	return s.selectBest(ctx, query), nil
}

// selectRequested scores directly against the named topic, skipping any
// comparison with other topics. Fetch failures degrade to a zero-confidence
// selection after the fetcher's retry is exhausted.
func (s *Selector) selectRequested(ctx context.Context, query, requested string) (Selection, error) {
	pageID, err := s.registry.Resolve(requested)
	if err != nil {
		return Selection{}, err
	}

	doc, err := s.fetcher.Fetch(ctx, requested, pageID)
	if err != nil {
		slog.Warn("content unavailable for requested topic", "topic", requested, "error", err)
		return Selection{
			Result:         relevance.Result{TopicName: requested},
			BelowThreshold: true,
		}, nil
	}

	result := s.scorer.Score(query, doc)
	return Selection{
		Result:         result,
		Document:       doc,
		BelowThreshold: result.Confidence < s.threshold,
	}, nil
}

// selectBest fetches and scores every topic concurrently, then picks the
// strictly highest confidence. Ties resolve to the earliest topic in
// registry order, which is why results are examined in that order rather
// than in completion order.
func (s *Selector) selectBest(ctx context.Context, query string) Selection {
	names := s.registry.List()
	scored := make([]*Selection, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, name := range names {
		g.Go(func() error {
			pageID, err := s.registry.Resolve(name)
			if err != nil {
				return nil
			}
			doc, err := s.fetcher.Fetch(gCtx, name, pageID)
			if err != nil {
				slog.Warn("skipping topic, content unavailable", "topic", name, "error", err)
				return nil
			}
			result := s.scorer.Score(query, doc)
			scored[i] = &Selection{Result: result, Document: doc}
			return nil
		})
	}
	// Fetch and scoring failures are swallowed per topic; Wait never errors.
	g.Wait()

	var best *Selection
	for _, sel := range scored {
		if sel == nil {
			continue
		}
		if best == nil || sel.Confidence > best.Confidence {
			best = sel
		}
	}

	if best == nil {
		// Every topic failed to fetch: degrade to an empty selection.
		return Selection{BelowThreshold: true}
	}
	best.BelowThreshold = best.Confidence < s.threshold
	return *best
}
