package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/refguard/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// MaxDepth overrides the engine's closure depth bound when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// RunID is an optional fixed run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Steps are ingested in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the stored run.
	Assertions []Assertion `yaml:"assertions"`
}

// Step ingests one module.
type Step struct {
	// Ingest is the module name.
	Ingest string `yaml:"ingest"`

	// References are the module's direct references, in order.
	References []string `yaml:"references,omitempty"`

	// Rules name the modules that must never reference this one.
	Rules []string `yaml:"rules,omitempty"`

	// Expect checks this step's outcome. If nil, nothing is checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Spec converts the step to the module spec it ingests.
func (s Step) Spec() ir.ModuleSpec {
	return ir.ModuleSpec{Name: s.Ingest, References: s.References, Rules: s.Rules}
}

// ExpectClause specifies the expected outcome of one ingestion.
type ExpectClause struct {
	// Violations are the expected violation paths, in order. An empty list
	// expects no violations.
	Violations [][]string `yaml:"violations"`

	// Dropped, when set, must equal the dropped references exactly.
	Dropped []string `yaml:"dropped,omitempty"`

	// Truncated, when set, must equal the depth-guard flag.
	Truncated *bool `yaml:"truncated,omitempty"`
}

// Assertion validates the trace or the stored run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number (violation_count, stored_violations).
	Count int `yaml:"count,omitempty"`

	// Path is the expected violation path (violation_path).
	Path []string `yaml:"path,omitempty"`

	// Referencer and Declarer filter violations (no_violation,
	// stored_violations). Empty matches any.
	Referencer string `yaml:"referencer,omitempty"`
	Declarer   string `yaml:"declarer,omitempty"`

	// Module and Reference identify a dropped edge (dropped_reference).
	Module    string `yaml:"module,omitempty"`
	Reference string `yaml:"reference,omitempty"`
}

// Assertion type constants.
const (
	AssertViolationCount   = "violation_count"
	AssertViolationPath    = "violation_path"
	AssertNoViolation      = "no_violation"
	AssertDroppedReference = "dropped_reference"
	AssertStoredViolations = "stored_violations"
)

// Specs returns the module specs of all steps, in order.
func (s *Scenario) Specs() []ir.ModuleSpec {
	specs := make([]ir.ModuleSpec, len(s.Steps))
	for i, step := range s.Steps {
		specs[i] = step.Spec()
	}
	return specs
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Ingest == "" {
			return fmt.Errorf("steps[%d]: ingest is required", i)
		}
		if step.Expect == nil {
			continue
		}
		for j, path := range step.Expect.Violations {
			if len(path) < 2 {
				return fmt.Errorf("steps[%d].expect.violations[%d]: path needs at least two modules", i, j)
			}
			if path[0] != step.Ingest {
				return fmt.Errorf("steps[%d].expect.violations[%d]: path must start at %s", i, j, step.Ingest)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertViolationCount, AssertStoredViolations:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertViolationPath:
		if len(a.Path) < 2 {
			return fmt.Errorf("assertions[%d]: path needs at least two modules for violation_path", index)
		}
	case AssertNoViolation:
		if a.Referencer == "" && a.Declarer == "" {
			return fmt.Errorf("assertions[%d]: referencer or declarer is required for no_violation", index)
		}
	case AssertDroppedReference:
		if a.Module == "" || a.Reference == "" {
			return fmt.Errorf("assertions[%d]: module and reference are required for dropped_reference", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
