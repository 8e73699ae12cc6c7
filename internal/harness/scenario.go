package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xsjk/Sklearn-Freezer/internal/build"
	"github.com/xsjk/Sklearn-Freezer/internal/codegen"
	"github.com/xsjk/Sklearn-Freezer/internal/errs"
)

// DefaultTolerance bounds |got - expect| when a scenario sets none.
const DefaultTolerance = 1e-10

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path of the model document.
	Model string `yaml:"model"`

	// Backends to freeze for. Empty means every backend.
	Backends []string `yaml:"backends,omitempty"`

	// Conventions to freeze with. Empty means scalar and batch.
	Conventions []string `yaml:"conventions,omitempty"`

	// Module, if set, makes compiles persistent under
	// "<module>_<convention>".
	Module string `yaml:"module,omitempty"`

	// Tolerance bounds the prediction error. Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Cases are sample rows with optional expected predictions.
	Cases []Case `yaml:"cases,omitempty"`

	// Assertions validate the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Case is one sample row.
type Case struct {
	Row []float64 `yaml:"row"`

	// Expect is the expected prediction. Nil means only assertions check
	// this row.
	Expect *float64 `yaml:"expect,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of matches_model, states, compile_error.
	Type string `yaml:"type"`

	// Backend and Convention narrow states and compile_error. Empty
	// matches every backend or convention.
	Backend    string `yaml:"backend,omitempty"`
	Convention string `yaml:"convention,omitempty"`

	// States is the expected state path (used by states).
	States []string `yaml:"states,omitempty"`

	// Code is the expected error code (used by compile_error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertMatchesModel = "matches_model"
	AssertStates       = "states"
	AssertCompileError = "compile_error"
)

// LoadScenario reads and parses a scenario YAML file. The model path is
// resolved relative to the scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.Model)
	}
	if len(s.Assertions) == 0 && len(s.Cases) == 0 {
		return fmt.Errorf("cases or assertions are required")
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}
	if s.Module != "" {
		if err := build.ValidateModuleName(s.Module); err != nil {
			return err
		}
	}

	for i, b := range s.Backends {
		if _, err := codegen.ParseBackend(b); err != nil {
			return fmt.Errorf("backends[%d]: %w", i, err)
		}
	}
	for i, c := range s.Conventions {
		if _, err := codegen.ParseConvention(c); err != nil {
			return fmt.Errorf("conventions[%d]: %w", i, err)
		}
	}
	for i, c := range s.Cases {
		if len(c.Row) == 0 {
			return fmt.Errorf("cases[%d]: row is required", i)
		}
		if i > 0 && len(c.Row) != len(s.Cases[0].Row) {
			return fmt.Errorf("cases[%d]: row has %d values, cases[0] has %d", i, len(c.Row), len(s.Cases[0].Row))
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertMatchesModel:
	case AssertStates:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for states", index)
		}
	case AssertCompileError:
		switch errs.Code(a.Code) {
		case errs.CodeUnsupportedModel, errs.CodeUnknownBackend, errs.CodeTypeMismatch,
			errs.CodeBuild, errs.CodeToolchainUnavailable:
		default:
			return fmt.Errorf("assertions[%d]: unknown error code %q for compile_error", index, a.Code)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (s *Scenario) backends() []codegen.Backend {
	if len(s.Backends) == 0 {
		return codegen.Backends()
	}
	out := make([]codegen.Backend, len(s.Backends))
	for i, b := range s.Backends {
		out[i] = codegen.Backend(b)
	}
	return out
}

func (s *Scenario) conventions() []codegen.Convention {
	if len(s.Conventions) == 0 {
		return []codegen.Convention{codegen.Scalar, codegen.Batch}
	}
	out := make([]codegen.Convention, len(s.Conventions))
	for i, c := range s.Conventions {
		out[i] = codegen.Convention(c)
	}
	return out
}

func (s *Scenario) tolerance() float64 {
	if s.Tolerance == 0 {
		return DefaultTolerance
	}
	return s.Tolerance
}
