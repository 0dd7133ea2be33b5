// Package source discovers and ingests reference documents for exam
// generation: PDFs, HTML pages, markdown, plain text, and images.
package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Document is one ingested reference. Text documents carry extracted text;
// binary documents (images) carry raw bytes for inline attachment.
type Document struct {
	Path     string
	Name     string
	MIMEType string
	Text     string
	Data     []byte
}

// Discover matches reference files under root against doublestar glob
// patterns. Results are de-duplicated and sorted for stable prompt order.
func Discover(root string, patterns []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			full := filepath.Join(root, m)
			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[full] {
				seen[full] = true
				paths = append(paths, full)
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// Ingest loads one reference file, extracting text where the format allows.
func Ingest(path string) (*Document, error) {
	doc := &Document{
		Path: path,
		Name: filepath.Base(path),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractPDFText(path)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s: %w", path, err)
		}
		doc.MIMEType = "application/pdf"
		doc.Text = text
	case ".html", ".htm":
		text, err := extractHTMLText(path)
		if err != nil {
			return nil, fmt.Errorf("extract html %s: %w", path, err)
		}
		doc.MIMEType = "text/html"
		doc.Text = text
	case ".png":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc.MIMEType = "image/png"
		doc.Data = data
	case ".jpg", ".jpeg":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc.MIMEType = "image/jpeg"
		doc.Data = data
	case ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc.MIMEType = "text/markdown"
		doc.Text = string(data)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc.MIMEType = "text/plain"
		doc.Text = string(data)
	}

	return doc, nil
}

// IngestAll loads every discovered reference, skipping files that fail to
// ingest so one unreadable PDF doesn't sink the batch.
func IngestAll(paths []string, logger *slog.Logger) []*Document {
	if logger == nil {
		logger = slog.Default()
	}

	docs := make([]*Document, 0, len(paths))
	for _, path := range paths {
		doc, err := Ingest(path)
		if err != nil {
			logger.Warn("Skipping reference document", "path", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
