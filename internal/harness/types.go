package harness

// Trace event types.
const (
	EventCompile      = "compile"
	EventCompileError = "compile_error"
	EventPrediction   = "prediction"
)

// TraceEvent is one compile or prediction observed while running a
// scenario.
type TraceEvent struct {
	Type       string    `json:"type"`
	Backend    string    `json:"backend"`
	Convention string    `json:"convention"`
	States     []string  `json:"states,omitempty"`
	Code       string    `json:"code,omitempty"`
	Row        []float64 `json:"row,omitempty"`
	Got        *float64  `json:"got,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true if no case or assertion failed.
	Pass bool `json:"pass"`

	// Trace lists compiles and predictions in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Skipped lists "backend/convention" pairs whose toolchain was missing.
	Skipped []string `json:"skipped,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addCompile(backend, convention string, states []string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompile,
		Backend:    backend,
		Convention: convention,
		States:     states,
	})
}

func (r *Result) addCompileError(backend, convention, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompileError,
		Backend:    backend,
		Convention: convention,
		Code:       code,
	})
}

func (r *Result) addPrediction(backend, convention string, row []float64, got float64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventPrediction,
		Backend:    backend,
		Convention: convention,
		Row:        append([]float64(nil), row...),
		Got:        &got,
	})
}
