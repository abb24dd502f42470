package answer

import (
	"fmt"
	"strings"

	"github.com/omnidocs/docschat/internal/relevance"
	"github.com/omnidocs/docschat/internal/selector"
)

// maxPromptContextChars caps the documentation slice injected into the answer
// prompt. Wider than the scoring excerpt: the model gets more surrounding
// context, starting at the same matched-term offset.
const maxPromptContextChars = 7000

// systemInstruction is the fixed system message for answer synthesis.
const systemInstruction = "You are a documentation assistant. Answer only from the provided context; be concise."

// buildPrompt assembles the answer prompt for a matched topic.
func buildPrompt(query string, sel selector.Selection) string {
	context := sel.Excerpt
	if sel.Document.Text != "" {
		context = relevance.Clip(sel.Document.Text, sel.ExcerptStart, maxPromptContextChars)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Context from '%s' documentation:\n", sel.TopicName)
	sb.WriteString(context)
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Answer ONLY if the documentation contains relevant information\n")
	sb.WriteString("- If the question cannot be answered from this documentation, clearly state: \"I don't have information about that in the documentation.\"\n")
	sb.WriteString("- Be specific and cite relevant details from the documentation\n")
	sb.WriteString("- If procedures or steps are involved, present them clearly\n")
	if len(sel.Document.Images) > 0 {
		sb.WriteString("- The documentation includes images; mention that visual references are available when they would help\n")
	}
	return sb.String()
}

// buildFallbackPrompt asks the model for a graceful reply when no topic
// matched the query at all.
func buildFallbackPrompt(query string, availableTopics []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The user asked: %q\n\n", query)
	fmt.Fprintf(&sb, "This question cannot be answered from the available documentation topics: %s.\n\n", strings.Join(availableTopics, ", "))
	sb.WriteString("Provide a helpful response that:\n")
	sb.WriteString("1. Acknowledges you don't have documentation about this specific topic\n")
	sb.WriteString("2. Lists what documentation IS available\n")
	sb.WriteString("3. Suggests rephrasing the question or contacting support\n\n")
	sb.WriteString("Do NOT make up information or pretend to know the answer.")
	return sb.String()
}
