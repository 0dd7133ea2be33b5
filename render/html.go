package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/c360studio/examforge/assemble"
	"github.com/yuin/goldmark"
)

// HTMLDeckRenderer produces a standalone HTML slide deck: the deck markdown
// converted with goldmark, split into one section element per slide.
type HTMLDeckRenderer struct{}

func init() {
	Register(&HTMLDeckRenderer{})
}

// Name returns the format identifier.
func (r *HTMLDeckRenderer) Name() string {
	return "html"
}

const htmlDeckTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Georgia, serif; margin: 0; background: #f4f4f4; }
section.slide { min-height: 90vh; padding: 4rem 6rem; margin: 1rem auto;
  max-width: 60rem; background: #fff; box-shadow: 0 1px 4px rgba(0,0,0,.2); }
section.slide h1, section.slide h2 { color: #234; }
blockquote { color: #567; border-left: 3px solid #9ab; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
%s
</body>
</html>
`

// Render writes the deck to path.
func (r *HTMLDeckRenderer) Render(doc *assemble.Document, path string) error {
	var slides strings.Builder

	for _, slideMD := range strings.Split(BuildDeckMarkdown(doc), "---\n\n") {
		if strings.TrimSpace(slideMD) == "" {
			continue
		}
		var body bytes.Buffer
		if err := goldmark.Convert([]byte(slideMD), &body); err != nil {
			return fmt.Errorf("convert slide markdown: %w", err)
		}
		slides.WriteString("<section class=\"slide\">\n")
		slides.Write(body.Bytes())
		slides.WriteString("</section>\n")
	}

	page := fmt.Sprintf(htmlDeckTemplate, doc.Title, slides.String())
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write html deck: %w", err)
	}
	return nil
}
