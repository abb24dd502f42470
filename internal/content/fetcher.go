package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omnidocs/docschat/internal/notion"
)

// ImageRef is an image from a documentation page, in page order.
type ImageRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Document is the flattened content of one topic's page. Text may be empty
// when the page genuinely has no textual blocks; scoring treats that as
// zero confidence rather than an error.
type Document struct {
	TopicName string
	Text      string
	Images    []ImageRef
	FetchedAt time.Time
}

// FetchError wraps a document source failure after the retry was exhausted.
type FetchError struct {
	PageID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching page %s: %v", e.PageID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BlockSource is the slice of the document API the fetcher needs.
type BlockSource interface {
	FetchPage(ctx context.Context, pageID string) (notion.PageContent, error)
}

// Fetcher retrieves topic content through the document API, caching results
// by topic name. Concurrent cache misses for the same topic are collapsed
// into a single upstream fetch.
type Fetcher struct {
	source BlockSource
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

// NewFetcher creates a Fetcher over the given source and cache.
func NewFetcher(source BlockSource, cache *Cache) *Fetcher {
	return &Fetcher{source: source, cache: cache, now: time.Now}
}

// Fetch returns the document for a topic, from cache when fresh. A transient
// upstream failure is retried once before surfacing as a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, topicName, pageID string) (Document, error) {
	if doc, ok := f.cache.Get(topicName); ok {
		return doc, nil
	}

	v, err, _ := f.group.Do(topicName, func() (any, error) {
		// Another caller may have filled the cache while we waited for the flight.
		if doc, ok := f.cache.Get(topicName); ok {
			return doc, nil
		}

		doc, err := f.fetchOnce(ctx, topicName, pageID)
		if err != nil {
			return Document{}, err
		}
		f.cache.Put(doc)
		return doc, nil
	})
	if err != nil {
		return Document{}, err
	}
	return v.(Document), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, topicName, pageID string) (Document, error) {
	page, err := f.source.FetchPage(ctx, pageID)
	if err != nil {
		slog.Warn("page fetch failed, retrying once", "topic", topicName, "page_id", pageID, "error", err)
		page, err = f.source.FetchPage(ctx, pageID)
	}
	if err != nil {
		return Document{}, &FetchError{PageID: pageID, Err: err}
	}

	images := make([]ImageRef, len(page.Images))
	for i, img := range page.Images {
		images[i] = ImageRef{URL: img.URL, Caption: img.Caption}
	}

	return Document{
		TopicName: topicName,
		Text:      strings.Join(page.Texts, " "),
		Images:    images,
		FetchedAt: f.now(),
	}, nil
}
