package assemble

import "encoding/json"

// Schema decodes and validates one response part. The exam variants differ
// only in document shape (nested sections vs a flat question list), so the
// shape difference is isolated here instead of duplicating the assembly
// control flow.
type Schema interface {
	// Name identifies the schema in config and logs.
	Name() string

	// Decode parses cleaned JSON text into a Document.
	Decode(data []byte) (*Document, error)

	// Validate checks required structural fields, failing fast on the
	// first missing one.
	Validate(doc *Document) error
}

// NestedSchema is the standard exam shape: title, meta, and sections
// containing question groups.
type NestedSchema struct{}

func (NestedSchema) Name() string { return "nested" }

func (NestedSchema) Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (NestedSchema) Validate(doc *Document) error {
	if doc.Title == "" {
		return &SchemaViolationError{Field: "title"}
	}
	if doc.Meta == (Meta{}) {
		return &SchemaViolationError{Field: "meta"}
	}
	if len(doc.Sections) == 0 {
		return &SchemaViolationError{Field: "sections"}
	}
	if Count(doc) == 0 {
		return &SchemaViolationError{Field: "sections[].groups[].questions"}
	}
	return nil
}

/// FlatSchema is the simpler variant: a top-level question list with no
// sections. Decoding normalizes it into a single-section Document so the
// merge and count logic stays uniform.
type FlatSchema struct{}

func (FlatSchema) Name() string { return "flat" }

type flatWire struct {
	Title     string     `json:"title"`
	Meta      Meta       `json:"meta"`
	Questions []Question `json:"questions"`
}

func (FlatSchema) Decode(data []byte) (*Document, error) {
	var wire flatWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	doc := &Document{
		Title: wire.Title,
		Meta:  wire.Meta,
	}
	if len(wire.Questions) > 0 {
		doc.Sections = []Section{{
			Title:  wire.Title,
			Groups: []QuestionGroup{{Questions: wire.Questions}},
		}}
	}
	return doc, nil
}

func (FlatSchema) Validate(doc *Document) error {
	if doc.Title == "" {
		return &SchemaViolationError{Field: "title"}
	}
	if doc.Meta == (Meta{}) {
		return &SchemaViolationError{Field: "meta"}
	}
	if Count(doc) == 0 {
		return &SchemaViolationError{Field: "questions"}
	}
	return nil
}

// SchemaByName resolves a config value to a Schema, defaulting to nested.
func SchemaByName(name string) Schema {
	if name == (FlatSchema{}).Name() {
		return FlatSchema{}
	}
	return NestedSchema{}
}
