package relevance

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/omnidocs/docschat/internal/content"
)

// DefaultExcerptLimit caps the excerpt handed to answer assembly, in bytes.
const DefaultExcerptLimit = 1500

// minTokenLen drops tokens too short to carry meaning ("a", "to", "is"...).
const minTokenLen = 3

// Result is the outcome of scoring one query against one topic's content.
// Confidence expresses lexical overlap, not semantic similarity: a query and
// a passage sharing no literal word stems score 0 regardless of relatedness.
type Result struct {
	TopicName    string
	Confidence   int
	Excerpt      string
	ExcerptStart int
	MatchedTerms map[string]struct{}
}

// Scorer computes keyword-overlap relevance between a query and a document.
type Scorer struct {
	excerptLimit int
	stopwords    map[string]struct{}
}

// NewScorer creates a Scorer. A non-positive excerptLimit falls back to
// DefaultExcerptLimit.
func NewScorer(excerptLimit int) *Scorer {
	if excerptLimit <= 0 {
		excerptLimit = DefaultExcerptLimit
	}
	return &Scorer{
		excerptLimit: excerptLimit,
		stopwords:    defaultStopwords(),
	}
}

// Score tokenizes query and content, intersects the token sets, and maps the
// overlap ratio onto a 0–100 confidence. The excerpt starts at the earliest
// token occurrence of any matched term (or the beginning of the content when
// nothing matched) and is trimmed to a word boundary within the limit.
func (s *Scorer) Score(query string, doc content.Document) Result {
	queryTokens := s.tokenIndex(query)
	contentTokens := s.tokenIndex(doc.Text)

	// Offsets come from tokenization over the original bytes: lowercasing is
	// not byte-length-preserving, so an offset found in a lowered copy would
	// drift on non-ASCII text.
	matched := make(map[string]struct{})
	start := len(doc.Text)
	for tok := range queryTokens {
		if off, ok := contentTokens[tok]; ok {
			matched[tok] = struct{}{}
			if off < start {
				start = off
			}
		}
	}
	if len(matched) == 0 {
		start = 0
	}

	confidence := 0
	if len(queryTokens) > 0 {
		raw := 100 * float64(len(matched)) / float64(len(queryTokens))
		confidence = int(math.Round(raw))
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
	}

	excerpt := s.clip(doc.Text, start)

	return Result{
		TopicName:    doc.TopicName,
		Confidence:   confidence,
		Excerpt:      excerpt,
		ExcerptStart: start,
		MatchedTerms: matched,
	}
}

// Clip returns a word-trimmed slice of text starting at the given byte
// offset, capped at limit bytes. Exposed for prompt assembly, which widens
// the scoring excerpt around the same start offset.
func Clip(text string, start, limit int) string {
	if start < 0 || start >= len(text) {
		start = 0
	}
	slice := text[start:]
	if len(slice) <= limit {
		return slice
	}

	slice = slice[:limit]
	// Back off to a rune boundary, then to the last full word.
	for len(slice) > 0 && !utf8.RuneStart(slice[len(slice)-1]) {
		slice = slice[:len(slice)-1]
	}
	if cut := strings.LastIndexByte(slice, ' '); cut > 0 {
		slice = slice[:cut]
	}
	return slice
}

func (s *Scorer) clip(text string, start int) string {
	return Clip(text, start, s.excerptLimit)
}

// tokenIndex splits text on non-alphanumeric boundaries, lowercases each
// token, drops short tokens and stop words, and maps every surviving token to
// the byte offset of its first occurrence in the original text.
func (s *Scorer) tokenIndex(text string) map[string]int {
	idx := make(map[string]int)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			s.indexToken(idx, text[start:i], start)
			start = -1
		}
	}
	if start >= 0 {
		s.indexToken(idx, text[start:], start)
	}
	return idx
}

func (s *Scorer) indexToken(idx map[string]int, word string, offset int) {
	tok := strings.ToLower(word)
	if utf8.RuneCountInString(tok) < minTokenLen {
		return
	}
	if _, stop := s.stopwords[tok]; stop {
		return
	}
	if _, seen := idx[tok]; !seen {
		idx[tok] = offset
	}
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"the", "and", "but", "for", "with", "are", "was", "were", "been",
		"being", "this", "that", "these", "those", "from", "down", "over",
		"under", "again", "further", "than", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below",
		"out", "off", "own", "same", "too", "very", "can", "will", "just",
		"should", "now", "how", "what", "where", "when", "who", "why",
		"does", "did", "has", "have", "had", "you", "your", "not", "all",
		"any", "there", "here",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
