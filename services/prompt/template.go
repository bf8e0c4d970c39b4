package prompt

import (
	"strings"

	"github.com/circassiandna/chatbot/services/retrieval"
)

const instructions = "You are a helpful assistant for Circassian DNA.\n" +
	"First, check the knowledge base entries below.\n" +
	"If you find a relevant answer, use it directly.\n" +
	"If the knowledge base does not have a clear answer, " +
	"you may use your own knowledge.\n" +
	"Always prefer the knowledge base if there is a match.\n\n"

// CombineContext renders context items as "Q: title\nA: text" blocks
// separated by blank lines. Missing fields render as empty strings.
func CombineContext(items []retrieval.ContextItem) string {
	blocks := make([]string, len(items))
	for i, item := range items {
		blocks[i] = "Q: " + deref(item.Q) + "\nA: " + deref(item.A)
	}
	return strings.Join(blocks, "\n\n")
}

// Build returns the completion prompt for question given its context.
func Build(question string, items []retrieval.ContextItem) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("Knowledge base: ")
	b.WriteString(CombineContext(items))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
