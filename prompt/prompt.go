// Package prompt builds the instruction payloads sent to the generative
// API: the initial exam request, continuation asks, and parse-failure
// clarifications.
package prompt

import (
	"fmt"
	"strings"

	"github.com/c360studio/examforge/llm"
	"github.com/c360studio/examforge/source"
)

// Build assembles the initial request parts: the generation instructions
// followed by every reference document, text inline and binaries as
// attachment parts.
func Build(subject string, target int, refs []*source.Document) []llm.Part {
	parts := []llm.Part{llm.TextPart(instructions(subject, target))}

	for _, ref := range refs {
		if ref.Text != "" {
			parts = append(parts, llm.TextPart(
				fmt.Sprintf("Reference document %q:\n\n%s", ref.Name, ref.Text)))
		}
		if len(ref.Data) > 0 {
			parts = append(parts, llm.BlobPart(ref.MIMEType, ref.Data))
		}
	}
	return parts
}

// instructions is the exam-generation contract. The JSON shape here must
// stay in sync with the assemble package's nested schema.
func instructions(subject string, target int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an exam author. Using the reference documents provided, "+
		"write a complete mock exam for %s with exactly %d questions, "+
		"numbered 1 through %d.\n\n", subject, target, target)
	b.WriteString(`Respond with a single JSON object and nothing else, using this shape:

{
  "title": "...",
  "meta": {"subject": "...", "level": "...", "language": "...", "duration_minutes": 0},
  "sections": [
    {
      "title": "...",
      "groups": [
        {
          "instructions": "...",
          "questions": [
            {"number": 1, "text": "...", "options": ["..."], "answer": "...", "explanation": "..."}
          ]
        }
      ]
    }
  ]
}

Number questions sequentially across all sections. Do not wrap the JSON in markdown fences.`)
	return b.String()
}

// Continuation asks the model for the remaining questions of an exam it has
// already started, continuing the numbering where the last part stopped.
func Continuation(remaining, nextNumber int) string {
	return fmt.Sprintf(
		"The exam is incomplete. Continue it with exactly %d more questions, "+
			"starting at question number %d. Respond with the same JSON shape, "+
			"containing only the new questions in their sections.",
		remaining, nextNumber)
}

// Clarification tells the model its previous response could not be parsed.
func Clarification() string {
	return "The previous response was not valid JSON. Respond again with " +
		"a single valid JSON object in the required shape, with no markdown " +
		"fences and no commentary."
}
