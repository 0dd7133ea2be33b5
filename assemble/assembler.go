package assemble

import "log/slog"

// Assembler validates and merges raw model responses using one schema.
// It is stateless apart from configuration and safe for concurrent use.
type Assembler struct {
	schema           Schema
	collapseNewlines bool
	logger           *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSchema sets the document schema. Default is NestedSchema.
func WithSchema(s Schema) Option {
	return func(a *Assembler) {
		a.schema = s
	}
}

// WithCollapsedNewlines makes Clean flatten responses to a single line
// before parsing. Trades readability of persisted raw text for parse safety.
func WithCollapsedNewlines() Option {
	return func(a *Assembler) {
		a.collapseNewlines = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		schema: NestedSchema{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schema returns the configured schema.
func (a *Assembler) Schema() Schema {
	return a.schema
}

// Assemble cleans and parses one raw response into a validated Document.
// On a parse failure it attempts boundary recovery exactly once; if the
// repaired text still fails it returns MalformedResponseError carrying the
// original parse error and a sample of the raw text.
func (a *Assembler) Assemble(raw string) (*Document, error) {
	candidate := Clean(raw, a.collapseNewlines)

	doc, parseErr := a.schema.Decode([]byte(candidate))
	if parseErr != nil {
		repaired, ok := Repair(candidate)
		if ok {
			if recovered, err := a.schema.Decode([]byte(repaired)); err == nil {
				a.logger.Debug("Boundary recovery succeeded",
					"schema", a.schema.Name(),
					"repaired_len", len(repaired))
				doc = recovered
			}
		}
		if doc == nil {
			return nil, &MalformedResponseError{Err: parseErr, Sample: sample(raw)}
		}
	}

	if err := a.schema.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Merge folds a new part into the running document. The first part seeds
// the document directly.
func (a *Assembler) Merge(dst *Document, part *Document) *Document {
	return Merge(dst, part, a.logger)
}
