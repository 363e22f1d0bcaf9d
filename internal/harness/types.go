package harness

// Trace event types.
const (
	EventStep   = "step"
	EventChange = "change"
)

// TraceEvent is either a flow step and its outcome, or a change
// notification published while the step ran.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"` // "step" or "change"

	// Step fields.
	Action   string `json:"action,omitempty"`
	Target   int64  `json:"target,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Instance string `json:"instance,omitempty"` // "#id STATE YYYY-MM-DD HH:MM"

	// Change fields.
	Op  string `json:"op,omitempty"`
	URI string `json:"uri,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every step and change in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}

// steps returns the step events in order.
func (r *Result) steps() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventStep {
			out = append(out, e)
		}
	}
	return out
}
