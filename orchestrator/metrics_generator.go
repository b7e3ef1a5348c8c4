package orchestrator

import (
	"context"

	"github.com/noctum/noctum/llmclient"
	"github.com/noctum/noctum/metrics"
)

// instrumentedGenerator wraps a llmclient.Generator to record call counts
// and durations under its owning endpoint's name, without the Mutation
// Engine, Diagram Engine, or analysis queue needing to know metrics exist.
type instrumentedGenerator struct {
	llmclient.Generator
	endpoint string
}

func instrumentGenerators(gens []llmclient.Generator, endpoints []string) []llmclient.Generator {
	out := make([]llmclient.Generator, len(gens))
	for i, g := range gens {
		name := "unknown"
		if i < len(endpoints) {
			name = endpoints[i]
		}
		out[i] = &instrumentedGenerator{Generator: g, endpoint: name}
	}
	return out
}

func (g *instrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	timer := metrics.NewTimer()
	text, err := g.Generator.Generate(ctx, prompt)
	timer.ObserveDurationVec(metrics.LLMCallDuration, g.endpoint)
	metrics.LLMCallsTotal.WithLabelValues(g.endpoint, outcomeLabel(err)).Inc()
	return text, err
}

func (g *instrumentedGenerator) GenerateStructured(ctx context.Context, prompt string, schema []byte, target any) error {
	timer := metrics.NewTimer()
	err := g.Generator.GenerateStructured(ctx, prompt, schema, target)
	timer.ObserveDurationVec(metrics.LLMCallDuration, g.endpoint)
	metrics.LLMCallsTotal.WithLabelValues(g.endpoint, outcomeLabel(err)).Inc()
	return err
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
