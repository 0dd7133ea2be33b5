package llm

import (
	"net/http"
	"sync"
)

// Provider defines the interface for generative API adapters.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string

	// BuildURL constructs the full unary endpoint URL for a model.
	BuildURL(baseURL, model, apiKey string) string

	// StreamURL constructs the streaming endpoint URL. ok is false when
	// the provider has no streaming call path; the client then falls back
	// to the unary path transparently.
	StreamURL(baseURL, model, apiKey string) (url string, ok bool)

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request, apiKey string)

	// BuildRequestBody creates the JSON request body.
	BuildRequestBody(req Request) ([]byte, error)

	// ParseResponse extracts the response text and usage counters from
	// provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)

	// ParseStreamEvent extracts the text fragment from one SSE data
	// payload. Fragments are concatenated in arrival order.
	ParseStreamEvent(data []byte) (fragment string, usage *Usage, err error)

	// ClassifyError maps a non-2xx response to a kinded error.
	ClassifyError(statusCode int, body []byte) error
}

// providerRegistry holds registered providers.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
