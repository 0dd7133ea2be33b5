package llm

// Part is one element of an ordered request payload: either text or an
// inline binary attachment (a reference document page, a diagram image).
type Part struct {
	Text string
	Blob *Blob
}

// Blob is an inline binary attachment.
type Blob struct {
	MIMEType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart builds a binary attachment part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{Blob: &Blob{MIMEType: mimeType, Data: data}}
}

// Params are optional generation parameters.
type Params struct {
	// MaxOutputTokens limits response length. 0 uses the provider default.
	MaxOutputTokens int

	// Temperature controls randomness. nil uses the provider default.
	Temperature *float64

	// ThinkingBudget is the reasoning-token budget. nil disables the knob;
	// valid ranges depend on the model family and are checked before any
	// network call.
	ThinkingBudget *int
}

// Request is one generation request.
type Request struct {
	Model  string
	Parts  []Part
	Params Params
}

// TextLen returns the total byte length of the request's text parts,
// used for token estimation.
func (r Request) TextLen() int {
	total := 0
	for _, p := range r.Parts {
		total += len(p.Text)
	}
	return total
}

// BlobCount returns the number of binary attachment parts.
func (r Request) BlobCount() int {
	count := 0
	for _, p := range r.Parts {
		if p.Blob != nil {
			count++
		}
	}
	return count
}

// Usage is the token accounting reported by the API, when available.
type Usage struct {
	PromptTokens   int
	OutputTokens   int
	ThinkingTokens int
}

// Total returns the sum of all reported token counts.
func (u Usage) Total() int {
	return u.PromptTokens + u.OutputTokens + u.ThinkingTokens
}

// Response is the result of one generation call.
type Response struct {
	// RequestID uniquely identifies this call for log correlation.
	RequestID string

	// Text is the generated output, with streamed fragments already
	// concatenated in arrival order.
	Text string

	// Model is the model that served the request.
	Model string

	// Usage holds token accounting if the provider reported it.
	Usage Usage
}
