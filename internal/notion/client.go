package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
	pageSize       = 100
)

// requestTimeout bounds a single block-children API call. A full page walk
// may issue several calls; the caller's context bounds the walk as a whole.
const requestTimeout = 15 * time.Second

// Image is an image block extracted from a page: the hosted URL plus the
// caption text, joined from the caption's rich text fragments.
type Image struct {
	URL     string
	Caption string
}

// PageContent is the flattened readable content of a page: text fragments in
// reading order and images in the order they appear.
type PageContent struct {
	Texts  []string
	Images []Image
}

// Client communicates with the Notion REST API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client for the public Notion API using the given integration token.
func New(token string) *Client {
	return NewWithBaseURL(token, defaultBaseURL)
}

// NewWithBaseURL creates a Client against a custom base URL (used in tests).
func NewWithBaseURL(token, baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// childrenResponse mirrors the JSON returned by GET /v1/blocks/{id}/children.
type childrenResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}

// richText is the fragment shape shared by all text-bearing blocks.
type richText struct {
	PlainText string `json:"plain_text"`
}

// imagePayload is the type-specific body of an image block.
type imagePayload struct {
	Type     string     `json:"type"`
	External *hostedURL `json:"external"`
	File     *hostedURL `json:"file"`
	Caption  []richText `json:"caption"`
}

type hostedURL struct {
	URL string `json:"url"`
}

// blockHeader holds the fields common to every block; the type-specific body
// is picked out of the raw message by the block's own type name.
type blockHeader struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
}

// FetchPage walks the block tree under the given page (or block) ID and
// returns its readable text and images. Blocks with children are descended
// into; children that cannot be listed (revoked access, archived sub-pages)
// are skipped rather than failing the whole fetch. An empty page yields an
// empty PageContent and no error.
func (c *Client) FetchPage(ctx context.Context, pageID string) (PageContent, error) {
	var content PageContent
	if err := c.walkBlocks(ctx, pageID, &content, true); err != nil {
		return PageContent{}, err
	}
	return content, nil
}

func (c *Client) walkBlocks(ctx context.Context, blockID string, content *PageContent, isRoot bool) error {
	cursor := ""
	for {
		page, err := c.listChildren(ctx, blockID, cursor)
		if err != nil {
			if isRoot {
				return err
			}
			// Sub-block listing failures degrade to a partial fetch.
			slog.Debug("skipping inaccessible child block", "block_id", blockID, "error", err)
			return nil
		}

		for _, raw := range page.Results {
			if err := c.collectBlock(ctx, raw, content); err != nil {
				return err
			}
		}

		if !page.HasMore || page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) collectBlock(ctx context.Context, raw json.RawMessage, content *PageContent) error {
	var header blockHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return fmt.Errorf("decoding block: %w", err)
	}

	// The type-specific body lives under a key named after the block type
	// (paragraph, heading_1, image, ...).
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decoding block fields: %w", err)
	}
	body, ok := fields[header.Type]
	if !ok {
		return nil
	}

	if header.Type == "image" {
		var img imagePayload
		if err := json.Unmarshal(body, &img); err != nil {
			return fmt.Errorf("decoding image block %s: %w", header.ID, err)
		}
		if ref := imageFromPayload(img); ref.URL != "" {
			content.Images = append(content.Images, ref)
		}
		return nil
	}

	if text := textFromBody(body); text != "" {
		content.Texts = append(content.Texts, text)
	}

	if header.HasChildren {
		return c.walkBlocks(ctx, header.ID, content, false)
	}
	return nil
}

// textFromBody extracts the joined plain text of a block body's rich_text
// array, if it has one.
func textFromBody(body json.RawMessage) string {
	var payload struct {
		RichText []richText `json:"rich_text"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, rt := range payload.RichText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

func imageFromPayload(img imagePayload) Image {
	ref := Image{}
	switch {
	case img.Type == "external" && img.External != nil:
		ref.URL = img.External.URL
	case img.Type == "file" && img.File != nil:
		ref.URL = img.File.URL
	}
	captions := make([]string, 0, len(img.Caption))
	for _, rt := range img.Caption {
		captions = append(captions, rt.PlainText)
	}
	ref.Caption = strings.Join(captions, " ")
	return ref
}

// listChildren fetches one page of a block's children.
func (c *Client) listChildren(ctx context.Context, blockID, cursor string) (childrenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/blocks/%s/children?page_size=%d", c.baseURL, url.PathEscape(blockID), pageSize)
	if cursor != "" {
		endpoint += "&start_cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return childrenResponse{}, fmt.Errorf("creating children request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return childrenResponse{}, fmt.Errorf("listing children of %s: %w", blockID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return childrenResponse{}, fmt.Errorf("listing children of %s: unexpected status %d", blockID, resp.StatusCode)
	}

	var page childrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return childrenResponse{}, fmt.Errorf("decoding children response: %w", err)
	}
	return page, nil
}
