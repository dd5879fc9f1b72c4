package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/blackwell-systems/pipewatch/internal/suggest"
)

// Defaults for fields a model item leaves out.
const (
	defaultTitle      = "AI Suggestion"
	defaultConfidence = 0.7
	defaultSavings    = 60 * time.Second
)

const itemSchemaURL = "pipewatch://ai/optimization.json"

// itemSchema describes one entry of the "optimizations" array. Every field
// is optional; present fields must have the right shape. Savings are capped
// at one week.
const itemSchema = `{
  "type": "object",
  "properties": {
    "type": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "impact": {"type": "string", "enum": ["low", "medium", "high", "critical", "LOW", "MEDIUM", "HIGH", "CRITICAL"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "estimated_savings_seconds": {"type": "number", "minimum": 0, "maximum": 604800},
    "affected_jobs": {"type": "array", "items": {"type": "string"}},
    "code_suggestion": {"type": ["string", "null"]}
  }
}`

var compiledItemSchema = jsonschema.MustCompileString(itemSchemaURL, itemSchema)

// aiItem is the raw shape of one model suggestion.
type aiItem struct {
	Type                    string   `json:"type"`
	Title                   *string  `json:"title"`
	Description             string   `json:"description"`
	Impact                  string   `json:"impact"`
	Confidence              *float64 `json:"confidence"`
	EstimatedSavingsSeconds *float64 `json:"estimated_savings_seconds"`
	AffectedJobs            []string `json:"affected_jobs"`
	CodeSuggestion          *string  `json:"code_suggestion"`
}

// droppedItem records an entry rejected by validation.
type droppedItem struct {
	Index int
	Err   error
}

// parseResponse extracts suggestions from the model's answer. The answer is
// either {"optimizations": [...]} or a bare array, optionally wrapped in a
// markdown code fence.
func parseResponse(responseText string) ([]suggest.Suggestion, []droppedItem, error) {
	text := stripFences(responseText)

	raw, err := rawItems([]byte(text))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing AI JSON response: %w (response was: %.200s)", err, text)
	}

	suggestions := make([]suggest.Suggestion, 0, len(raw))
	var dropped []droppedItem
	for i, r := range raw {
		s, err := decodeItem(r)
		if err != nil {
			dropped = append(dropped, droppedItem{Index: i, Err: err})
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, dropped, nil
}

func stripFences(s string) string {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func rawItems(data []byte) ([]json.RawMessage, error) {
	if bytes.HasPrefix(data, []byte("[")) {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var envelope struct {
		Optimizations []json.RawMessage `json:"optimizations"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return envelope.Optimizations, nil
}

func decodeItem(raw json.RawMessage) (suggest.Suggestion, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return suggest.Suggestion{}, err
	}
	if err := compiledItemSchema.Validate(generic); err != nil {
		return suggest.Suggestion{}, err
	}

	var item aiItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return suggest.Suggestion{}, err
	}

	typ, _ := suggest.ParseType(item.Type)
	s := suggest.Suggestion{
		Type:             typ,
		Title:            defaultTitle,
		Description:      item.Description,
		Impact:           suggest.ImpactMedium,
		Confidence:       defaultConfidence,
		EstimatedSavings: defaultSavings,
		AffectedJobs:     item.AffectedJobs,
		Source:           suggest.SourceAI,
	}
	if item.Title != nil && *item.Title != "" {
		s.Title = *item.Title
	}
	if item.Impact != "" {
		if level, err := suggest.ParseImpact(item.Impact); err == nil {
			s.Impact = level
		}
	}
	if item.Confidence != nil {
		s.Confidence = *item.Confidence
	}
	if item.EstimatedSavingsSeconds != nil {
		s.EstimatedSavings = time.Duration(*item.EstimatedSavingsSeconds * float64(time.Second))
	}
	if item.CodeSuggestion != nil {
		s.CodeSuggestion = *item.CodeSuggestion
	}
	return s, nil
}
