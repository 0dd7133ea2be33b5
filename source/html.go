package source

import (
	"fmt"
	"net/url"
	"os"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
)

// extractHTMLText boils an HTML reference page down to its readable
// article content and converts that to markdown, which survives prompt
// embedding much better than raw markup.
func extractHTMLText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pageURL := &url.URL{Scheme: "file", Path: path}
	article, err := readability.FromReader(f, pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	return markdown, nil
}
