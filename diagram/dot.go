package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/goccy/go-graphviz"

	"github.com/noctum/noctum/llmclient"
)

// stripFences removes a leading/trailing markdown code fence (```dot,
// ```graphviz, or bare ```) around an LLM's DOT response, and trims
// surrounding whitespace. Text without fences passes through unchanged.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	lines := strings.Split(t, "\n")
	if len(lines) < 2 {
		return t
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseDOT parses dot text with an embedded, pure-Go DOT parser, returning
// the error message a fix prompt would quote on failure.
func ParseDOT(dot string) (*gographviz.Graph, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	graph := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, graph); err != nil {
		return nil, fmt.Errorf("analyse DOT: %w", err)
	}
	return graph, nil
}

// RenderSVG renders valid DOT text to an SVG document via an embedded
// Graphviz layout engine.
func RenderSVG(ctx context.Context, dot string) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("start layout engine: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return "", fmt.Errorf("parse DOT for rendering: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return "", fmt.Errorf("render SVG: %w", err)
	}
	return buf.String(), nil
}

func generationPrompt(diagramType Type, aggregatedText string) string {
	return fmt.Sprintf(
		"Compose a GraphViz DOT diagram of type %q from the following extracted facts. "+
			"Respond with DOT source only, describing nodes and edges that reflect the facts below. "+
			"Do not include any explanation outside the diagram.\n\n%s\n",
		diagramType, aggregatedText)
}

func fixPrompt(diagramType Type, brokenDOT, parseError string) string {
	return fmt.Sprintf(
		"The following GraphViz DOT diagram of type %q failed to parse.\n\n"+
			"Diagram:\n```\n%s\n```\n\n"+
			"Parse error:\n%s\n\n"+
			"Produce a corrected DOT diagram with the same intent. Respond with DOT source only.\n",
		diagramType, brokenDOT, parseError)
}

// GenerateDOT requests DOT text for diagramType from aggregatedText, and
// repairs parse failures by re-prompting with a fix prompt up to
// maxFixAttempts times, round-robining across gens (one generator per
// configured endpoint) so a single slow or broken endpoint doesn't
// monopolize the retry budget.
func GenerateDOT(ctx context.Context, gens []llmclient.Generator, diagramType Type, aggregatedText string) (string, error) {
	if len(gens) == 0 {
		return "", fmt.Errorf("generate DOT: no endpoints configured")
	}

	raw, err := gens[0].Generate(ctx, generationPrompt(diagramType, aggregatedText))
	if err != nil {
		return "", fmt.Errorf("generate DOT: %w", err)
	}
	dot := stripFences(raw)

	var lastErr error
	for attempt := 0; attempt < maxFixAttempts; attempt++ {
		if _, err := ParseDOT(dot); err == nil {
			return dot, nil
		} else {
			lastErr = err
		}

		gen := gens[attempt%len(gens)]
		fixed, err := gen.Generate(ctx, fixPrompt(diagramType, dot, lastErr.Error()))
		if err != nil {
			continue
		}
		dot = stripFences(fixed)
	}

	if _, err := ParseDOT(dot); err == nil {
		return dot, nil
	}
	return "", fmt.Errorf("generate DOT: unparseable after %d fix attempts: %w", maxFixAttempts, lastErr)
}
