package llmclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// LocalProvider implements the prompt-based generate API spoken by Ollama
// and compatible local servers (vLLM, llama.cpp server, LM Studio): POST a
// {model, prompt, stream, format?} document to /api/generate, read back
// {response: "..."}; list installed models from /api/tags.
type LocalProvider struct{}

func init() {
	RegisterProvider(&LocalProvider{})
}

// Name returns the provider identifier.
func (p *LocalProvider) Name() string {
	return "local"
}

// BuildGenerateURL constructs the generate endpoint.
func (p *LocalProvider) BuildGenerateURL(baseURL string) string {
	base := normalizeBase(baseURL)
	if strings.HasSuffix(base, "/api/generate") {
		return base
	}
	return base + "/api/generate"
}

// BuildHealthURL constructs the model-listing endpoint.
func (p *LocalProvider) BuildHealthURL(baseURL string) string {
	base := normalizeBase(baseURL)
	if strings.HasSuffix(base, "/api/tags") {
		return base
	}
	return base + "/api/tags"
}

func normalizeBase(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return strings.TrimSuffix(baseURL, "/")
}

// SetHeaders adds an optional bearer token for proxies in front of the
// local endpoint (OpenRouter-style gateways, auth-gated vLLM deployments).
func (p *LocalProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("NOCTUM_LLM_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// generateRequest is the wire request per spec.md §6: {model, prompt, stream}.
type generateRequest struct {
	Model  string          `json:"model"`
	Prompt string          `json:"prompt"`
	Stream bool            `json:"stream"`
	Format json.RawMessage `json:"format,omitempty"`
}

// BuildGenerateBody creates the free-form completion request body.
func (p *LocalProvider) BuildGenerateBody(model, prompt string) ([]byte, error) {
	return json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
}

// BuildStructuredBody creates the schema-constrained completion request body.
func (p *LocalProvider) BuildStructuredBody(model, prompt string, schema []byte) ([]byte, error) {
	return json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false, Format: schema})
}

// generateResponse is the wire response per spec.md §6: {response: string}.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// ParseGenerateResponse extracts the completion text.
func (p *LocalProvider) ParseGenerateResponse(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse generate response: %w", err)
	}
	return resp.Response, nil
}

// tagsResponse mirrors Ollama's /api/tags model-listing format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ParseModelList extracts model names from a model-listing response.
func (p *LocalProvider) ParseModelList(body []byte) ([]string, error) {
	var resp tagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse model list: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
