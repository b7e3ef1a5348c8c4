package llmclient

import "context"

// Generator is the subset of Client behavior callers outside this package
// depend on. Defining it as an interface lets the Mutation Engine and
// Diagram Engine accept either a real *Client or testutil.Mock.
type Generator interface {
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStructured(ctx context.Context, prompt string, schema []byte, target any) error
	ListModels(ctx context.Context) ([]string, error)
}

var _ Generator = (*Client)(nil)
