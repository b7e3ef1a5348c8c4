package langadapter

import "fmt"

// diagramFocus maps a diagram type to the bullet-point extraction focus
// the Diagram Engine asks for per spec.md §4.6.
var diagramFocus = map[string]string{
	"system_architecture": "this file's module role, its public interface, and what it depends on",
	"data_flow":            "data sources, transformations, and sinks this file participates in",
	"database_schema":      "tables, columns, and relationships this file defines or references",
}

func diagramExtractionPrompt(diagramType, language, filePath, content string) string {
	focus := diagramFocus[diagramType]
	if focus == "" {
		focus = "structure relevant to " + diagramType
	}
	return fmt.Sprintf(
		"Extract, as tight bullet points only, %s from this %s file at %q.\n"+
			"If this file has no significant content for that purpose, reply with exactly: no significant content.\n\n```\n%s\n```\n",
		focus, language, filePath, content)
}

func architectureSummaryPrompt(language, repositoryName, combinedAnalysis string) string {
	return fmt.Sprintf(
		"You are synthesizing a single architecture summary for the %s repository %q from the per-file documentation and architecture notes below.\n"+
			"Describe the major modules, how they depend on one another, and the overall design, in prose rather than a per-file recap.\n\n%s\n",
		language, repositoryName, combinedAnalysis)
}

func mutationGenerationPrompt(language, filePath, content string) string {
	return fmt.Sprintf(
		"You are generating small, targeted mutations of a %s file at %q for mutation testing.\n"+
			"Each mutation is a batch of one or more literal find/replace edits that changes the file's observable behavior in a way a correct test suite should catch (flip a comparison, swap an operator, fix an off-by-one). Do not generate cosmetic changes.\n"+
			"Reference line numbers in the file below (1-indexed). Respond with the requested JSON schema only.\n\n```\n%s\n```\n",
		language, filePath, content)
}

func mutationFixPrompt(language, filePath, originalContent, mutationDescription, errorTail string) string {
	return fmt.Sprintf(
		"Your previous mutation of the %s file at %q failed to compile.\n\n"+
			"Mutation: %s\n\n"+
			"Compiler error (tail):\n%s\n\n"+
			"Original file content:\n```\n%s\n```\n\n"+
			"Produce a corrected mutation with the same intent, responding with the requested JSON schema only.\n",
		language, filePath, mutationDescription, errorTail, originalContent)
}
