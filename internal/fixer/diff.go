package fixer

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// unifiedDiff renders a line diff between two serialized documents.
func unifiedDiff(original, optimized *workflow.Document) (string, error) {
	a, err := original.Bytes()
	if err != nil {
		return "", fmt.Errorf("serializing original: %w", err)
	}
	b, err := optimized.Bytes()
	if err != nil {
		return "", fmt.Errorf("serializing optimized: %w", err)
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "original",
		ToFile:   "optimized",
		Context:  3,
	})
}
