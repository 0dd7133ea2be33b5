package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/examforge/llm"
)

// OpenAIProvider implements the OpenAI chat completions API.
type OpenAIProvider struct{}

const openaiDefaultBaseURL = "https://api.openai.com"

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL constructs the chat completions endpoint.
func (o *OpenAIProvider) BuildURL(baseURL, _ string, _ string) string {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return baseURL + "/v1/chat/completions"
}

// StreamURL reports no streaming support; the client falls back to the
// unary path.
func (o *OpenAIProvider) StreamURL(_, _, _ string) (string, bool) {
	return "", false
}

// SetHeaders adds the Bearer token.
func (o *OpenAIProvider) SetHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

type openaiContentPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *openaiImagePart `json:"image_url,omitempty"`
}

type openaiImagePart struct {
	URL string `json:"url"`
}

type openaiMessage struct {
	Role    string              `json:"role"`
	Content []openaiContentPart `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// BuildRequestBody creates the chat completions request body. Binary parts
// travel as data-URL image parts.
func (o *OpenAIProvider) BuildRequestBody(req llm.Request) ([]byte, error) {
	parts := make([]openaiContentPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch {
		case p.Blob != nil:
			dataURL := fmt.Sprintf("data:%s;base64,%s",
				p.Blob.MIMEType, base64.StdEncoding.EncodeToString(p.Blob.Data))
			parts = append(parts, openaiContentPart{
				Type:     "image_url",
				ImageURL: &openaiImagePart{URL: dataURL},
			})
		case p.Text != "":
			parts = append(parts, openaiContentPart{Type: "text", Text: p.Text})
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("request has no content parts")
	}

	body := openaiRequest{
		Model:       req.Model,
		Messages:    []openaiMessage{{Role: "user", Content: parts}},
		Temperature: req.Params.Temperature,
		MaxTokens:   req.Params.MaxOutputTokens,
	}
	return json.Marshal(body)
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ParseResponse extracts the completion text and usage counters.
func (o *OpenAIProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("parse openai response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, llm.NewTransientError(fmt.Errorf("openai response has no choices"))
	}

	return &llm.Response{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		Usage: llm.Usage{
			PromptTokens: parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

// ParseStreamEvent is unreachable: StreamURL reports no streaming support.
func (o *OpenAIProvider) ParseStreamEvent(_ []byte) (string, *llm.Usage, error) {
	return "", nil, fmt.Errorf("openai provider does not stream")
}

// ClassifyError uses the shared HTTP status classification.
func (o *OpenAIProvider) ClassifyError(statusCode int, body []byte) error {
	return llm.ClassifyHTTPError(statusCode, body)
}
