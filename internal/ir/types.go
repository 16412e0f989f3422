package ir

import "strings"

// DiagnosticCode identifies a forbidden-reference violation.
const DiagnosticCode = "RARCH1"

// ModuleSpec is one module as handed to the engine: its name, the modules it
// directly references and the modules that must never reference it.
type ModuleSpec struct {
	Name       string   `json:"name"`
	References []string `json:"references"`
	Rules      []string `json:"cannot_be_referenced_by"`
}

// Violation records that Referencer reaches Declarer through Path, while
// Declarer forbids being referenced by Referencer.
//
// Path starts at Referencer and ends at Declarer.
type Violation struct {
	Code       string   `json:"code"`
	Referencer string   `json:"referencer"`
	Declarer   string   `json:"declarer"`
	Path       []string `json:"path"`
}

// NewViolation builds a violation with the RARCH1 code.
func NewViolation(referencer, declarer string, path []string) Violation {
	return Violation{
		Code:       DiagnosticCode,
		Referencer: referencer,
		Declarer:   declarer,
		Path:       path,
	}
}

// Chain renders the path joined by "->".
func (v Violation) Chain() string {
	return strings.Join(v.Path, "->")
}

// Message renders the user-facing diagnostic text.
func (v Violation) Message() string {
	return "Module " + v.Referencer + " has a forbidden reference to module " +
		v.Declarer + ". Reference chain: " + v.Chain() + "."
}

// IngestionRecord is the persisted outcome of ingesting one module.
type IngestionRecord struct {
	RunID      string      `json:"run_id"`
	Seq        int64       `json:"seq"`
	Module     ModuleSpec  `json:"module"`
	Dropped    []string    `json:"dropped"`
	Truncated  bool        `json:"truncated"`
	Violations []Violation `json:"violations"`
}

// RunRecord describes one analysis run.
type RunRecord struct {
	ID            string `json:"id"`
	ManifestHash  string `json:"manifest_hash"`
	MaxDepth      int    `json:"max_depth"`
	Order         string `json:"order"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}
