package workflow

import "time"

// ConclusionSuccess is the conclusion recorded for a successful run.
const ConclusionSuccess = "success"

// Run is an immutable record of one historical pipeline execution.
type Run struct {
	ID           string        `json:"id"`
	WorkflowName string        `json:"workflow_name"`
	Status       string        `json:"status"`
	Conclusion   string        `json:"conclusion,omitempty"` // empty while the run is in progress
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewRun builds a Run whose duration is updated minus created. A negative or
// undeterminable span is recorded as zero.
func NewRun(id, workflowName, status, conclusion string, created, updated time.Time) Run {
	var d time.Duration
	if !created.IsZero() && !updated.IsZero() && updated.After(created) {
		d = updated.Sub(created)
	}
	return Run{
		ID:           id,
		WorkflowName: workflowName,
		Status:       status,
		Conclusion:   conclusion,
		Duration:     d,
		CreatedAt:    created,
	}
}

// Succeeded reports whether the run concluded successfully.
func (r Run) Succeeded() bool {
	return r.Conclusion == ConclusionSuccess
}

// InProgress reports whether the run has no conclusion yet.
func (r Run) InProgress() bool {
	return r.Conclusion == ""
}
