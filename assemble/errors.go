package assemble

import "fmt"

// sampleLen bounds how much raw text is kept for diagnostics.
const sampleLen = 200

// MalformedResponseError reports a response that failed to parse even after
// boundary recovery. Sample carries a prefix of the raw text for diagnosis.
type MalformedResponseError struct {
	Err    error
	Sample string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v (sample: %q)", e.Err, e.Sample)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// SchemaViolationError reports a parsed response missing a required
// structural field.
type SchemaViolationError struct {
	Field string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: missing or empty field %q", e.Field)
}

func sample(raw string) string {
	if len(raw) > sampleLen {
		return raw[:sampleLen]
	}
	return raw
}
