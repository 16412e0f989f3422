package harness

import "github.com/roach88/refguard/internal/engine"

// TraceEvent records one ingestion.
type TraceEvent struct {
	Seq        int64      `json:"seq"`
	Module     string     `json:"module"`
	Dropped    []string   `json:"dropped,omitempty"`
	Truncated  bool       `json:"truncated,omitempty"`
	Violations [][]string `json:"violations"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// RunID is the engine run the scenario executed in.
	RunID string `json:"run_id"`

	// Trace has one event per step, in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:   true,
		RunID:  runID,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddIngestionTrace appends an ingestion outcome to the trace.
func (r *Result) AddIngestionTrace(res engine.Result) {
	paths := make([][]string, 0, len(res.Violations))
	for _, v := range res.Violations {
		paths = append(paths, v.Path)
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:        res.Seq,
		Module:     res.Spec.Name,
		Dropped:    res.Dropped,
		Truncated:  res.Truncated,
		Violations: paths,
	})
}

// ViolationPaths returns every violation path in trace order.
func (r *Result) ViolationPaths() [][]string {
	var paths [][]string
	for _, event := range r.Trace {
		paths = append(paths, event.Violations...)
	}
	return paths
}
