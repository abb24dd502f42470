package notion

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeNotion serves canned /v1/blocks/{id}/children responses keyed by block ID.
// The cursor map allows multi-page responses: "id:cursor" keys override "id".
func fakeNotion(t *testing.T, pages map[string]string) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Notion-Version"); got == "" {
			t.Errorf("missing Notion-Version header")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer test-token", got)
		}

		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 4 {
			http.NotFound(w, r)
			return
		}
		id := parts[3]
		key := id
		if cursor := r.URL.Query().Get("start_cursor"); cursor != "" {
			key = id + ":" + cursor
		}
		body, ok := pages[key]
		if !ok {
			http.Error(w, `{"object":"error","status":404}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, NewWithBaseURL("test-token", srv.URL)
}

func paragraph(id, text string) string {
	return fmt.Sprintf(`{"id":%q,"type":"paragraph","has_children":false,
		"paragraph":{"rich_text":[{"plain_text":%q}]}}`, id, text)
}

func TestFetchPage_TextAndImages(t *testing.T) {
	page := `{
		"results": [
			` + paragraph("b1", "MQTT broker setup requires a host and port.") + `,
			{"id":"b2","type":"heading_1","has_children":false,
			 "heading_1":{"rich_text":[{"plain_text":"Install"},{"plain_text":"ation"}]}},
			{"id":"b3","type":"image","has_children":false,
			 "image":{"type":"external","external":{"url":"https://img.example/one.png"},
			          "caption":[{"plain_text":"wiring"},{"plain_text":"diagram"}]}},
			{"id":"b4","type":"image","has_children":false,
			 "image":{"type":"file","file":{"url":"https://img.example/two.png"},"caption":[]}},
			{"id":"b5","type":"divider","has_children":false,"divider":{}}
		],
		"has_more": false,
		"next_cursor": null
	}`
	_, c := fakeNotion(t, map[string]string{"page-1": page})

	content, err := c.FetchPage(t.Context(), "page-1")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	wantTexts := []string{"MQTT broker setup requires a host and port.", "Installation"}
	if len(content.Texts) != len(wantTexts) {
		t.Fatalf("Texts = %v, want %v", content.Texts, wantTexts)
	}
	for i := range wantTexts {
		if content.Texts[i] != wantTexts[i] {
			t.Errorf("Texts[%d] = %q, want %q", i, content.Texts[i], wantTexts[i])
		}
	}

	if len(content.Images) != 2 {
		t.Fatalf("Images = %v, want 2 entries", content.Images)
	}
	if content.Images[0].URL != "https://img.example/one.png" || content.Images[0].Caption != "wiring diagram" {
		t.Errorf("Images[0] = %+v, want external url with joined caption", content.Images[0])
	}
	if content.Images[1].URL != "https://img.example/two.png" || content.Images[1].Caption != "" {
		t.Errorf("Images[1] = %+v, want file url with empty caption", content.Images[1])
	}
}

func TestFetchPage_Pagination(t *testing.T) {
	_, c := fakeNotion(t, map[string]string{
		"page-1": `{"results":[` + paragraph("b1", "first") + `],"has_more":true,"next_cursor":"cur-2"}`,
		"page-1:cur-2": `{"results":[` + paragraph("b2", "second") + `],"has_more":false,"next_cursor":null}`,
	})

	content, err := c.FetchPage(t.Context(), "page-1")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(content.Texts) != 2 || content.Texts[0] != "first" || content.Texts[1] != "second" {
		t.Errorf("Texts = %v, want [first second]", content.Texts)
	}
}

func TestFetchPage_RecursesIntoChildren(t *testing.T) {
	root := `{"results":[
		{"id":"toggle-1","type":"toggle","has_children":true,
		 "toggle":{"rich_text":[{"plain_text":"Advanced"}]}}
	],"has_more":false,"next_cursor":null}`
	child := `{"results":[` + paragraph("b2", "nested detail") + `],"has_more":false,"next_cursor":null}`
	_, c := fakeNotion(t, map[string]string{"page-1": root, "toggle-1": child})

	content, err := c.FetchPage(t.Context(), "page-1")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(content.Texts) != 2 || content.Texts[0] != "Advanced" || content.Texts[1] != "nested detail" {
		t.Errorf("Texts = %v, want parent text followed by child text", content.Texts)
	}
}

func TestFetchPage_SkipsInaccessibleChildren(t *testing.T) {
	// child-page block exists but its children listing 404s; the fetch must
	// keep the rest of the page.
	root := `{"results":[
		{"id":"sub-1","type":"child_page","has_children":true,"child_page":{"title":"Private"}},
		` + paragraph("b2", "still readable") + `
	],"has_more":false,"next_cursor":null}`
	_, c := fakeNotion(t, map[string]string{"page-1": root})

	content, err := c.FetchPage(t.Context(), "page-1")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(content.Texts) != 1 || content.Texts[0] != "still readable" {
		t.Errorf("Texts = %v, want the accessible paragraph only", content.Texts)
	}
}

func TestFetchPage_EmptyPage(t *testing.T) {
	_, c := fakeNotion(t, map[string]string{
		"page-1": `{"results":[],"has_more":false,"next_cursor":null}`,
	})

	content, err := c.FetchPage(t.Context(), "page-1")
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(content.Texts) != 0 || len(content.Images) != 0 {
		t.Errorf("content = %+v, want empty", content)
	}
}

func TestFetchPage_RootError(t *testing.T) {
	_, c := fakeNotion(t, map[string]string{})

	if _, err := c.FetchPage(t.Context(), "missing-page"); err == nil {
		t.Fatal("FetchPage() error = nil, want error for inaccessible root")
	}
}
