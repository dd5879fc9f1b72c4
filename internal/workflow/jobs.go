package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Job is a read-only view of one entry under the top-level "jobs" mapping.
type Job struct {
	Name        string
	Steps       []Step
	Needs       []string
	HasNeeds    bool
	HasStrategy bool

	// stepsOwner is the node a step insert for this job would edit: the
	// resolved steps sequence, or the job mapping when it has none.
	stepsOwner *yaml.Node
}

// SharesSteps reports whether inserting a step into j also changes other,
// as happens when jobs reuse one steps sequence through a YAML alias.
func (j Job) SharesSteps(other Job) bool {
	return j.stepsOwner != nil && j.stepsOwner == other.stepsOwner
}

// Step is a read-only view of one entry in a job's "steps" sequence.
type Step struct {
	Index int
	Name  string
	Uses  string
	Run   string
}

// Jobs returns the jobs in document order. A missing or malformed "jobs"
// key yields nil; a malformed job yields a Job with only its name set.
func (d *Document) Jobs() []Job {
	jobs := resolve(lookup(d.root, "jobs"))
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Job, 0, len(jobs.Content)/2)
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		out = append(out, jobView(jobs.Content[i].Value, jobs.Content[i+1]))
	}
	return out
}

// Job returns the named job.
func (d *Document) Job(name string) (Job, bool) {
	for _, j := range d.Jobs() {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

func jobView(name string, n *yaml.Node) Job {
	j := Job{Name: name}
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return j
	}
	j.stepsOwner = n
	if needs := lookup(n, "needs"); needs != nil {
		j.HasNeeds = true
		j.Needs = stringList(needs)
	}
	j.HasStrategy = lookup(n, "strategy") != nil

	steps := resolve(lookup(n, "steps"))
	if steps == nil || steps.Kind != yaml.SequenceNode {
		return j
	}
	j.stepsOwner = steps
	for idx, s := range steps.Content {
		j.Steps = append(j.Steps, Step{
			Index: idx,
			Name:  scalar(lookup(s, "name")),
			Uses:  scalar(lookup(s, "uses")),
			Run:   scalar(lookup(s, "run")),
		})
	}
	return j
}

// stringList normalizes a scalar or a sequence of scalars.
func stringList(n *yaml.Node) []string {
	n = resolve(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if v := scalar(c); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return nil
}

// jobNode returns the mapping node for the named job.
func (d *Document) jobNode(name string) (*yaml.Node, error) {
	jobs := resolve(lookup(d.root, "jobs"))
	if jobs == nil {
		return nil, fmt.Errorf("jobs: missing")
	}
	if jobs.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jobs: %w", ErrNotMapping)
	}
	n := resolve(lookup(jobs, name))
	if n == nil {
		return nil, fmt.Errorf("job %q: missing", name)
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("job %q: %w", name, ErrNotMapping)
	}
	return n, nil
}

// SetJobField replaces (or appends) key within the named job.
func (d *Document) SetJobField(job, key string, value any) error {
	n, err := d.jobNode(job)
	if err != nil {
		return err
	}
	v, err := encodeNode(value)
	if err != nil {
		return fmt.Errorf("job %q: setting %q: %w", job, key, err)
	}
	return setKey(n, key, v)
}

// InsertStep inserts step at position at in the named job's steps. A job
// with no "steps" key gets one. Positions past the end append.
func (d *Document) InsertStep(job string, at int, step any) error {
	n, err := d.jobNode(job)
	if err != nil {
		return err
	}
	s, err := encodeNode(step)
	if err != nil {
		return fmt.Errorf("job %q: encoding step: %w", job, err)
	}

	steps := resolve(lookup(n, "steps"))
	if steps == nil {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{s}}
		return setKey(n, "steps", seq)
	}
	if steps.Kind != yaml.SequenceNode {
		return fmt.Errorf("job %q: steps: %w", job, ErrNotSequence)
	}
	if len(steps.Content) == 0 {
		// "steps: []" would otherwise force the new step into flow style.
		steps.Style = 0
	}
	if at < 0 {
		at = 0
	}
	if at > len(steps.Content) {
		at = len(steps.Content)
	}
	content := make([]*yaml.Node, 0, len(steps.Content)+1)
	content = append(content, steps.Content[:at]...)
	content = append(content, s)
	content = append(content, steps.Content[at:]...)
	steps.Content = content
	return nil
}

// JobsShapeError reports why the "jobs" key cannot be edited, or nil when it
// is absent or a mapping.
func (d *Document) JobsShapeError() error {
	jobs := resolve(lookup(d.root, "jobs"))
	if jobs != nil && jobs.Kind != yaml.MappingNode {
		return fmt.Errorf("jobs: %w", ErrNotMapping)
	}
	return nil
}
