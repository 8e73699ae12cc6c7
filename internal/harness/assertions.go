package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/xsjk/Sklearn-Freezer/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		switch event.Type {
		case EventCompile:
			fmt.Fprintf(&buf, "  [%d] compile %s/%s %v\n", i+1, event.Backend, event.Convention, event.States)
		case EventCompileError:
			fmt.Fprintf(&buf, "  [%d] compile %s/%s failed: %s\n", i+1, event.Backend, event.Convention, event.Code)
		case EventPrediction:
			fmt.Fprintf(&buf, "  [%d] predict %s/%s %v = %v\n", i+1, event.Backend, event.Convention, event.Row, *event.Got)
		}
	}
	return buf.String()
}

// prober is implemented by models that can predict on their own.
type prober interface {
	PositiveProba(x []float64) (float64, error)
}

// evaluateAssertions checks every assertion and reports compile errors no
// compile_error assertion accounts for.
func evaluateAssertions(s *Scenario, m model.Model, r *Result) {
	for _, a := range s.Assertions {
		var err error
		switch a.Type {
		case AssertMatchesModel:
			err = assertMatchesModel(r.Trace, m, s.tolerance())
		case AssertStates:
			err = assertStates(r.Trace, a)
		case AssertCompileError:
			err = assertCompileError(r.Trace, a)
		}
		if err != nil {
			r.AddError(err.Error())
		}
	}
	if err := assertNoUnexpectedErrors(r.Trace, s.Assertions); err != nil {
		r.AddError(err.Error())
	}
}

// assertMatchesModel checks every prediction against the model's own
// traversal.
func assertMatchesModel(trace []TraceEvent, m model.Model, tol float64) error {
	ref, ok := m.(prober)
	if !ok {
		return &AssertionError{
			Type:     AssertMatchesModel,
			Expected: "a model that predicts on its own",
			Actual:   fmt.Sprintf("model kind %q", m.Kind()),
		}
	}
	for _, event := range trace {
		if event.Type != EventPrediction {
			continue
		}
		want, err := ref.PositiveProba(event.Row)
		if err != nil {
			return &AssertionError{
				Type:     AssertMatchesModel,
				Expected: fmt.Sprintf("reference prediction for %v", event.Row),
				Actual:   err.Error(),
				Trace:    trace,
			}
		}
		if math.Abs(*event.Got-want) > tol {
			return &AssertionError{
				Type:     AssertMatchesModel,
				Expected: fmt.Sprintf("%s/%s %v = %v", event.Backend, event.Convention, event.Row, want),
				Actual:   fmt.Sprintf("%v", *event.Got),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertStates checks that every matching compile took exactly the given
// state path, and that at least one compile matched.
func assertStates(trace []TraceEvent, a Assertion) error {
	matched := 0
	for _, event := range trace {
		if event.Type != EventCompile || !a.selects(event) {
			continue
		}
		matched++
		if !slices.Equal(event.States, a.States) {
			return &AssertionError{
				Type:     AssertStates,
				Expected: fmt.Sprintf("%s/%s took %v", event.Backend, event.Convention, a.States),
				Actual:   fmt.Sprintf("%v", event.States),
				Trace:    trace,
			}
		}
	}
	if matched == 0 {
		return &AssertionError{
			Type:     AssertStates,
			Expected: fmt.Sprintf("a compile for %s", a.target()),
			Actual:   "none in trace",
			Trace:    trace,
		}
	}
	return nil
}

// assertCompileError checks that every matching compile failed with the
// given code, and that at least one did.
func assertCompileError(trace []TraceEvent, a Assertion) error {
	matched := 0
	for _, event := range trace {
		if !a.selects(event) {
			continue
		}
		switch event.Type {
		case EventCompile:
			return &AssertionError{
				Type:     AssertCompileError,
				Expected: fmt.Sprintf("%s/%s to fail with %s", event.Backend, event.Convention, a.Code),
				Actual:   "compiled",
				Trace:    trace,
			}
		case EventCompileError:
			matched++
			if event.Code != a.Code {
				return &AssertionError{
					Type:     AssertCompileError,
					Expected: fmt.Sprintf("%s/%s to fail with %s", event.Backend, event.Convention, a.Code),
					Actual:   event.Code,
					Trace:    trace,
				}
			}
		}
	}
	if matched == 0 {
		return &AssertionError{
			Type:     AssertCompileError,
			Expected: fmt.Sprintf("a failed compile for %s", a.target()),
			Actual:   "none in trace",
			Trace:    trace,
		}
	}
	return nil
}

func assertNoUnexpectedErrors(trace []TraceEvent, assertions []Assertion) error {
	for _, event := range trace {
		if event.Type != EventCompileError {
			continue
		}
		expected := slices.ContainsFunc(assertions, func(a Assertion) bool {
			return a.Type == AssertCompileError && a.selects(event)
		})
		if !expected {
			return &AssertionError{
				Type:     "unexpected_compile_error",
				Expected: fmt.Sprintf("%s/%s to compile", event.Backend, event.Convention),
				Actual:   event.Code,
				Trace:    trace,
			}
		}
	}
	return nil
}

func (a Assertion) selects(e TraceEvent) bool {
	return (a.Backend == "" || a.Backend == e.Backend) &&
		(a.Convention == "" || a.Convention == e.Convention)
}

func (a Assertion) target() string {
	b, c := a.Backend, a.Convention
	if b == "" {
		b = "*"
	}
	if c == "" {
		c = "*"
	}
	return b + "/" + c
}
