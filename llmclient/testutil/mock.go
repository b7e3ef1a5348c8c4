// Package testutil provides test doubles for the llmclient package.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
)

// Mock is a thread-safe stand-in for llmclient.Generator. Responses are
// consumed in sequence, which makes it convenient for testing the Mutation
// Engine's LLM-in-the-loop compile-fix retries (first response is a bad
// mutation, second is the fix).
//
//	mock := &Mock{Responses: []string{"first attempt", "fixed attempt"}}
type Mock struct {
	mu            sync.Mutex
	Available     bool
	Responses     []string // free-form / structured text, consumed in order
	Err           error    // if set, every call returns this error
	Models        []string
	callCount     int
	responseIndex int
	lastPrompt    string
}

// IsAvailable reports the configured availability.
func (m *Mock) IsAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Available
}

// Generate returns the next configured response.
func (m *Mock) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompt = prompt
	m.callCount++
	if m.Err != nil {
		return "", m.Err
	}
	return m.nextResponse(), nil
}

// GenerateStructured decodes the next configured response into target.
func (m *Mock) GenerateStructured(_ context.Context, prompt string, _ []byte, target any) error {
	m.mu.Lock()
	m.lastPrompt = prompt
	m.callCount++
	if m.Err != nil {
		err := m.Err
		m.mu.Unlock()
		return err
	}
	resp := m.nextResponse()
	m.mu.Unlock()
	return json.Unmarshal([]byte(resp), target)
}

// ListModels returns the configured model list.
func (m *Mock) ListModels(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Models, nil
}

// nextResponse returns the next response, holding the last one once
// exhausted so repeated calls in a retry loop keep succeeding.
func (m *Mock) nextResponse() string {
	if len(m.Responses) == 0 {
		return ""
	}
	if m.responseIndex >= len(m.Responses) {
		return m.Responses[len(m.Responses)-1]
	}
	resp := m.Responses[m.responseIndex]
	m.responseIndex++
	return resp
}

// CallCount returns the number of Generate/GenerateStructured calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the prompt from the most recent call.
func (m *Mock) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears call count and response cursor for reuse across test cases.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.responseIndex = 0
	m.lastPrompt = ""
}
