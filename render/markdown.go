package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/c360studio/examforge/assemble"
)

// MarkdownRenderer writes the exam as a slide-per-question markdown deck,
// slides separated by horizontal rules.
type MarkdownRenderer struct{}

func init() {
	Register(&MarkdownRenderer{})
}

// Name returns the format identifier.
func (r *MarkdownRenderer) Name() string {
	return "markdown"
}

// Render writes the deck to path.
func (r *MarkdownRenderer) Render(doc *assemble.Document, path string) error {
	if err := os.WriteFile(path, []byte(BuildDeckMarkdown(doc)), 0o644); err != nil {
		return fmt.Errorf("write markdown deck: %w", err)
	}
	return nil
}

// BuildDeckMarkdown converts a document into deck markdown. Shared by the
// markdown and HTML renderers.
func BuildDeckMarkdown(doc *assemble.Document) string {
	var b strings.Builder

	// Title slide
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	if doc.Meta.Subject != "" {
		fmt.Fprintf(&b, "**Subject:** %s\n\n", doc.Meta.Subject)
	}
	if doc.Meta.Level != "" {
		fmt.Fprintf(&b, "**Level:** %s\n\n", doc.Meta.Level)
	}
	if doc.Meta.DurationMinutes > 0 {
		fmt.Fprintf(&b, "**Duration:** %d minutes\n\n", doc.Meta.DurationMinutes)
	}

	for _, sec := range doc.Sections {
		b.WriteString("---\n\n")
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)

		for _, grp := range sec.Groups {
			if grp.Instructions != "" {
				fmt.Fprintf(&b, "*%s*\n\n", grp.Instructions)
			}
			for _, q := range grp.Questions {
				b.WriteString("---\n\n")
				fmt.Fprintf(&b, "### Question %d\n\n%s\n\n", q.Number, q.Text)
				for i, opt := range q.Options {
					fmt.Fprintf(&b, "%c. %s\n", 'A'+i, opt)
				}
				if len(q.Options) > 0 {
					b.WriteString("\n")
				}
				if q.Diagram != "" {
					fmt.Fprintf(&b, "```\n%s\n```\n\n", q.Diagram)
				}
				if q.Answer != "" {
					fmt.Fprintf(&b, "**Answer:** %s\n\n", q.Answer)
				}
				if q.Explanation != "" {
					fmt.Fprintf(&b, "> %s\n\n", q.Explanation)
				}
			}
		}
	}

	return b.String()
}
