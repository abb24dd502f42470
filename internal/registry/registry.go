package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Topic binds a documentation topic name to the Notion page holding its content.
type Topic struct {
	Name   string
	PageID string
}

// NotFoundError is returned when a requested topic is not registered.
// It carries the full list of valid topic names so callers can correct input.
type NotFoundError struct {
	Name  string
	Valid []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown topic %q (valid topics: %s)", e.Name, strings.Join(e.Valid, ", "))
}

// Registry is the static topic → page mapping loaded once at startup.
// Topics keep the insertion order of the sources file; that order is the
// tie-breaker during topic selection, so it must be stable.
type Registry struct {
	topics []Topic
	byName map[string]string
}

// New builds a Registry from an ordered topic list.
func New(topics []Topic) (*Registry, error) {
	byName := make(map[string]string, len(topics))
	for _, t := range topics {
		if t.Name == "" {
			return nil, fmt.Errorf("topic with empty name")
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate topic %q", t.Name)
		}
		byName[t.Name] = t.PageID
	}
	return &Registry{topics: topics, byName: byName}, nil
}

// LoadFile reads a sources file: a JSON object mapping topic names to Notion
// page URLs (or bare page IDs).
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sources file: %w", err)
	}
	defer f.Close()

	reg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes the sources JSON object. A plain json.Unmarshal into a map
// would lose key order, so the object is walked token by token instead.
func Parse(r io.Reader) (*Registry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("sources must be a JSON object, got %v", tok)
	}

	var topics []Topic
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading topic name: %w", err)
		}
		name := keyTok.(string)

		var ref string
		if err := dec.Decode(&ref); err != nil {
			return nil, fmt.Errorf("reading source for topic %q: %w", name, err)
		}
		topics = append(topics, Topic{Name: name, PageID: ExtractPageID(ref)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("sources file contains no topics")
	}
	return New(topics)
}

// List returns all topic names in sources-file order.
func (r *Registry) List() []string {
	names := make([]string, len(r.topics))
	for i, t := range r.topics {
		names[i] = t.Name
	}
	return names
}

// Resolve returns the page ID for a topic name, or a NotFoundError.
func (r *Registry) Resolve(name string) (string, error) {
	id, ok := r.byName[name]
	if !ok {
		return "", &NotFoundError{Name: name, Valid: r.List()}
	}
	return id, nil
}

// Len returns the number of registered topics.
func (r *Registry) Len() int {
	return len(r.topics)
}

// ExtractPageID pulls the page ID out of a Notion page URL. Shared page URLs
// end with "<slugified-title>-<id>", so the segment after the last hyphen is
// the ID. Bare IDs (no hyphen) pass through unchanged.
func ExtractPageID(ref string) string {
	if q := strings.IndexByte(ref, '?'); q >= 0 {
		ref = ref[:q]
	}
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.LastIndexByte(ref, '-'); i >= 0 {
		return ref[i+1:]
	}
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
