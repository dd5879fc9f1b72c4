package fixer

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Fields are declared in the order they should appear in the workflow.

type cacheStep struct {
	Name string    `yaml:"name"`
	Uses string    `yaml:"uses"`
	With cacheWith `yaml:"with"`
}

type cacheWith struct {
	Path        string `yaml:"path"`
	Key         string `yaml:"key"`
	RestoreKeys string `yaml:"restore-keys"`
}

type concurrencyBlock struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

type matrixStrategy struct {
	Matrix   map[string][]string `yaml:"matrix"`
	FailFast bool                `yaml:"fail-fast"`
}

var defaultCacheStep = cacheStep{
	Name: "Cache Dependencies",
	Uses: "actions/cache@v4",
	With: cacheWith{
		Path:        "~/.cache/pip\nnode_modules",
		Key:         "${{ runner.os }}-deps-${{ hashFiles('**/requirements.txt', '**/package-lock.json') }}",
		RestoreKeys: "${{ runner.os }}-deps-",
	},
}

var defaultConcurrency = concurrencyBlock{
	Group:            "${{ github.workflow }}-${{ github.ref }}",
	CancelInProgress: true,
}

var defaultMatrix = matrixStrategy{
	Matrix:   map[string][]string{"test-group": {"unit", "integration"}},
	FailFast: false,
}

// addCache inserts the cache step into every job, right after the first
// checkout step or at the top when there is none. Jobs sharing a steps
// sequence through an alias get the step once.
func addCache(doc *workflow.Document) (string, error) {
	if err := doc.JobsShapeError(); err != nil {
		return "", err
	}
	var edited []workflow.Job
	for _, job := range doc.Jobs() {
		if sharesEdited(job, edited) {
			continue
		}
		if err := doc.InsertStep(job.Name, checkoutPosition(job), defaultCacheStep); err != nil {
			return "", err
		}
		edited = append(edited, job)
	}
	return workflow.Fragment(defaultCacheStep)
}

func sharesEdited(job workflow.Job, edited []workflow.Job) bool {
	for _, e := range edited {
		if job.SharesSteps(e) {
			return true
		}
	}
	return false
}

func checkoutPosition(job workflow.Job) int {
	for _, s := range job.Steps {
		if strings.Contains(s.Uses, "checkout") {
			return s.Index + 1
		}
	}
	return 0
}

// addConcurrency sets the top-level concurrency block, ahead of "jobs" when
// the key is new.
func addConcurrency(doc *workflow.Document) (string, error) {
	if err := doc.SetBefore("concurrency", "jobs", defaultConcurrency); err != nil {
		return "", err
	}
	return workflow.Fragment(map[string]concurrencyBlock{"concurrency": defaultConcurrency})
}

// addMatrix sets the strategy of every job whose name contains "test".
func addMatrix(doc *workflow.Document) (string, error) {
	if err := doc.JobsShapeError(); err != nil {
		return "", err
	}
	for _, job := range doc.Jobs() {
		if !strings.Contains(job.Name, "test") {
			continue
		}
		if err := doc.SetJobField(job.Name, "strategy", defaultMatrix); err != nil {
			return "", fmt.Errorf("setting matrix: %w", err)
		}
	}
	return workflow.Fragment(map[string]matrixStrategy{"strategy": defaultMatrix})
}
