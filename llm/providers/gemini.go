// Package providers implements generative API adapters.
package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/examforge/llm"
)

// GeminiProvider implements the Google Generative Language API.
type GeminiProvider struct{}

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	llm.RegisterProvider(&GeminiProvider{})
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string {
	return "gemini"
}

// BuildURL constructs the generateContent endpoint. The API key travels as
// a query parameter.
func (g *GeminiProvider) BuildURL(baseURL, model, apiKey string) string {
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, model, apiKey)
}

// StreamURL constructs the SSE streaming endpoint.
func (g *GeminiProvider) StreamURL(baseURL, model, apiKey string) (string, bool) {
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", baseURL, model, apiKey), true
}

// SetHeaders adds Gemini-specific headers. The key is in the URL, so only
// the content type matters and the client already sets it.
func (g *GeminiProvider) SetHeaders(_ *http.Request, _ string) {}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int                   `json:"maxOutputTokens,omitempty"`
	Temperature     *float64              `json:"temperature,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// BuildRequestBody creates the generateContent request body.
func (g *GeminiProvider) BuildRequestBody(req llm.Request) ([]byte, error) {
	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch {
		case p.Blob != nil:
			parts = append(parts, geminiPart{
				InlineData: &geminiInlineData{
					MIMEType: p.Blob.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.Blob.Data),
				},
			})
		case p.Text != "":
			parts = append(parts, geminiPart{Text: p.Text})
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("request has no content parts")
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}

	genConfig := &geminiGenerationConfig{
		MaxOutputTokens: req.Params.MaxOutputTokens,
		Temperature:     req.Params.Temperature,
	}
	if req.Params.ThinkingBudget != nil {
		genConfig.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: *req.Params.ThinkingBudget}
	}
	body.GenerationConfig = genConfig

	return json.Marshal(body)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *geminiUsage `json:"usageMetadata"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
}

// ParseResponse extracts the generated text and usage counters.
func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("parse gemini response: %w", err))
	}
	if len(parsed.Candidates) == 0 {
		return nil, llm.NewTransientError(fmt.Errorf("gemini response has no candidates"))
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	resp := &llm.Response{
		Text:  text.String(),
		Model: model,
	}
	if parsed.UsageMetadata != nil {
		resp.Usage = llm.Usage{
			PromptTokens:   parsed.UsageMetadata.PromptTokenCount,
			OutputTokens:   parsed.UsageMetadata.CandidatesTokenCount,
			ThinkingTokens: parsed.UsageMetadata.ThoughtsTokenCount,
		}
	}
	return resp, nil
}

// ParseStreamEvent extracts the text fragment from one SSE chunk. Chunks
// share the unary response shape.
func (g *GeminiProvider) ParseStreamEvent(data []byte) (string, *llm.Usage, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", nil, fmt.Errorf("parse gemini stream chunk: %w", err)
	}

	var text strings.Builder
	if len(parsed.Candidates) > 0 {
		for _, part := range parsed.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}

	var usage *llm.Usage
	if parsed.UsageMetadata != nil {
		usage = &llm.Usage{
			PromptTokens:   parsed.UsageMetadata.PromptTokenCount,
			OutputTokens:   parsed.UsageMetadata.CandidatesTokenCount,
			ThinkingTokens: parsed.UsageMetadata.ThoughtsTokenCount,
		}
	}
	return text.String(), usage, nil
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifyError refines the HTTP classification with the structured status
// field Gemini puts in error bodies: RESOURCE_EXHAUSTED is a quota failure
// whatever the HTTP status said.
func (g *GeminiProvider) ClassifyError(statusCode int, body []byte) error {
	var parsed geminiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Status == "RESOURCE_EXHAUSTED" {
		return llm.NewQuotaError(fmt.Errorf(
			"gemini quota exhausted (status %d): %s", statusCode, parsed.Error.Message))
	}
	return llm.ClassifyHTTPError(statusCode, body)
}
