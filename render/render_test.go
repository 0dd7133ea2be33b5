package render_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/examforge/assemble"
	"github.com/c360studio/examforge/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *assemble.Document {
	return &assemble.Document{
		Title: "Physics Mock Exam",
		Meta:  assemble.Meta{Subject: "Physics", Level: "Advanced", DurationMinutes: 90},
		Sections: []assemble.Section{
			{
				Title: "Mechanics",
				Groups: []assemble.QuestionGroup{
					{
						Instructions: "Choose the best answer.",
						Questions: []assemble.Question{
							{Number: 1, Text: "F = ?", Options: []string{"ma", "mv"}, Answer: "A", Explanation: "Newton's second law."},
							{Number: 2, Text: "Unit of work?", Options: []string{"Joule", "Watt"}, Answer: "A"},
						},
					},
				},
			},
		},
	}
}

func TestRegistryResolvesFormats(t *testing.T) {
	for _, format := range []string{"markdown", "html"} {
		r, err := render.Get(format)
		require.NoError(t, err, format)
		assert.Equal(t, format, r.Name())
	}

	_, err := render.Get("pptx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestMarkdownRenderer(t *testing.T) {
	r, err := render.Get("markdown")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "exam.md")
	require.NoError(t, r.Render(sampleDoc(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# Physics Mock Exam")
	assert.Contains(t, content, "## Mechanics")
	assert.Contains(t, content, "### Question 1")
	assert.Contains(t, content, "A. ma")
	assert.Contains(t, content, "**Answer:** A")
	// One slide separator per question plus the section slide
	assert.Equal(t, 3, strings.Count(content, "---\n"))
}

func TestHTMLDeckRenderer(t *testing.T) {
	r, err := render.Get("html")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "exam.html")
	require.NoError(t, r.Render(sampleDoc(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "<title>Physics Mock Exam</title>")
	// Title slide, section slide, and one slide per question
	assert.Equal(t, 4, strings.Count(content, "<section class=\"slide\">"))
	assert.Contains(t, content, "second law.")
}
