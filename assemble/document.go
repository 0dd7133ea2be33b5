// Package assemble turns raw model output into validated exam documents:
// cleanup of formatting noise, JSON parsing with bounded syntactic recovery,
// shape validation against a pluggable schema, and merging of multi-part
// responses into one logical document.
package assemble

import "log/slog"

// Document is the logical merged result of one work unit: a mock exam with
// ordered sections, each holding ordered question groups.
type Document struct {
	Title    string    `json:"title"`
	Meta     Meta      `json:"meta"`
	Sections []Section `json:"sections"`
}

// Meta describes the exam as a whole.
type Meta struct {
	Subject         string `json:"subject,omitempty"`
	Level           string `json:"level,omitempty"`
	Language        string `json:"language,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// Section is one ordered part of the exam.
type Section struct {
	Title  string          `json:"title"`
	Groups []QuestionGroup `json:"groups"`
}

// QuestionGroup is one batch of questions within a section. Each response
// part contributes whole groups, so merge order is group arrival order.
type QuestionGroup struct {
	Instructions string     `json:"instructions,omitempty"`
	Questions    []Question `json:"questions"`
}

// Question is a single exam item.
type Question struct {
	Number      int      `json:"number"`
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Diagram     string   `json:"diagram,omitempty"`
}

// Count returns the total number of questions across all sections.
func Count(doc *Document) int {
	if doc == nil {
		return 0
	}
	total := 0
	for _, sec := range doc.Sections {
		for _, grp := range sec.Groups {
			total += len(grp.Questions)
		}
	}
	return total
}

// Merge folds a continuation part into an existing document. Sections are
// matched by title: on a match the part's groups are appended in arrival
// order, otherwise the section is appended wholesale. Question numbers are
// not deduplicated; a part that repeats earlier numbers introduces
// duplicates, which is logged but not repaired.
func Merge(dst *Document, part *Document, logger *slog.Logger) *Document {
	if dst == nil {
		return part
	}
	if part == nil {
		return dst
	}
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[int]bool)
	for _, sec := range dst.Sections {
		for _, grp := range sec.Groups {
			for _, q := range grp.Questions {
				seen[q.Number] = true
			}
		}
	}

	for _, partSec := range part.Sections {
		for _, grp := range partSec.Groups {
			for _, q := range grp.Questions {
				if seen[q.Number] {
					logger.Warn("Continuation repeats question number",
						"number", q.Number,
						"section", partSec.Title)
				}
			}
		}

		merged := false
		for i := range dst.Sections {
			if dst.Sections[i].Title == partSec.Title {
				dst.Sections[i].Groups = append(dst.Sections[i].Groups, partSec.Groups...)
				merged = true
				break
			}
		}
		if !merged {
			dst.Sections = append(dst.Sections, partSec)
		}
	}
	return dst
}
