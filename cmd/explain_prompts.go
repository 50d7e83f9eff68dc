package cmd

import (
	"strings"
)

// buildExplainSystemPrompt creates the system prompt for the explain command.
// The prompt keeps the model anchored to the sample rendering it is given,
// since that rendering is its only view of the input.
func buildExplainSystemPrompt() string {
	return `You are a helpful data extraction assistant. Your role is to answer
questions about structured samples that were distilled out of a text stream
by a chain of extraction stages. Answer the user's specific question
accurately and directly using only the provided samples.

The samples are grouped by the stage that produced them. Captures appear in
stream order; field maps pair names with values; block tables group captures
by the numbered section of the stream they came from.

Guidelines:
- Focus on answering the user's specific question
- Reference stage names, sample values, and block numbers when relevant
- Distinguish observations from inferences
- Never invent samples or values that aren't in the provided data
- If the samples cannot answer the question, say so clearly`
}

// buildExplainUserPrompt creates the user prompt combining the question with
// the rendered run output.
func buildExplainUserPrompt(question, recipeName, rendered string) string {
	var sb strings.Builder

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	if recipeName != "" {
		sb.WriteString("Recipe: ")
		sb.WriteString(recipeName)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Distilled samples:\n")
	sb.WriteString(rendered)

	return sb.String()
}
