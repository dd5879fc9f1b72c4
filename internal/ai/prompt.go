package ai

import (
	"fmt"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

const systemPrompt = `You are a CI/CD and DevOps expert. Your task is to analyze
GitHub Actions workflows and suggest specific, practical optimizations.

Focus on:
1. Reducing execution time
2. Improving cache usage
3. Parallelizing when possible
4. Eliminating redundancies
5. Improving reliability

Always respond in structured JSON format.`

const userPromptTemplate = "Analyze this GitHub Actions workflow and suggest optimizations:\n\n" +
	"```yaml\n%s```\n\n" +
	`Respond with a JSON object containing an "optimizations" array. Each item has:
- type: one of cache, parallel, skip_redundant, resource_upgrade, concurrency, artifact, matrix
- title: brief title
- description: detailed description
- impact: low, medium, high or critical (optional)
- confidence: confidence 0-1
- estimated_savings_seconds: estimated savings in seconds
- affected_jobs: names of the jobs involved (optional)
- code_suggestion: suggested YAML code (optional)

Only include high-confidence, high-value optimizations.`

func buildUserPrompt(doc *workflow.Document) (string, error) {
	body, err := doc.Bytes()
	if err != nil {
		return "", fmt.Errorf("serializing workflow: %w", err)
	}
	return fmt.Sprintf(userPromptTemplate, body), nil
}
