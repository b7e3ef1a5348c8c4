package llmclient

import (
	"net/http"
	"sync"
)

// Provider builds and parses requests for one wire format spoken by a
// locally-hosted LLM host (Ollama, vLLM, llama.cpp, and similar servers
// that expose a prompt-based generate endpoint). Noctum only ever talks to
// local endpoints: cloud chat-completion wire formats are intentionally not
// implemented.
type Provider interface {
	// Name returns the provider identifier (e.g., "local").
	Name() string

	// BuildGenerateURL constructs the free-form/structured generation endpoint.
	BuildGenerateURL(baseURL string) string

	// BuildHealthURL constructs the model-listing endpoint used by IsAvailable.
	BuildHealthURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildGenerateBody creates the request body for a free-form completion:
	// {model, prompt, stream: false}.
	BuildGenerateBody(model, prompt string) ([]byte, error)

	// BuildStructuredBody creates the request body for a schema-constrained
	// completion: {model, prompt, stream: false, format: <schema>}.
	BuildStructuredBody(model, prompt string, schema []byte) ([]byte, error)

	// ParseGenerateResponse extracts the generated text from {response: "..."}.
	ParseGenerateResponse(body []byte) (string, error)

	// ParseModelList extracts model names from a model-listing response.
	ParseModelList(body []byte) ([]string, error)
}

// providerRegistry holds registered providers, keyed by name.
var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry. Called from provider
// implementations' init().
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a registered provider by name.
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
