package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/refguard/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrModuleNameEmpty     = "E101" // module name is required
	ErrReferenceEmpty      = "E102" // empty reference name
	ErrDuplicateReference  = "E103" // same reference declared twice
	ErrRuleEmpty           = "E104" // empty forbidden-referrer name
	ErrDuplicateRule       = "E105" // same forbidden referrer declared twice
	ErrSelfRule            = "E106" // module forbids itself
	ErrSelfReference       = "E107" // module references itself
	ErrDuplicateModuleName = "E108" // two modules share a name
)

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Module  string `json:"module,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Module, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks one module spec. All errors are returned, not just the
// first.
func Validate(spec *ir.ModuleSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "module name is required and must be non-empty",
			Code:    ErrModuleNameEmpty,
		})
	}

	errs = append(errs, validateNames(spec, "references", spec.References,
		ErrReferenceEmpty, ErrDuplicateReference, ErrSelfReference, "module references itself")...)
	errs = append(errs, validateNames(spec, "cannot_be_referenced_by", spec.Rules,
		ErrRuleEmpty, ErrDuplicateRule, ErrSelfRule, "module forbids being referenced by itself")...)

	return errs
}

func validateNames(spec *ir.ModuleSpec, field string, names []string, emptyCode, dupCode, selfCode, selfMsg string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(names))

	for i, name := range names {
		loc := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, ValidationError{
				Module: spec.Name, Field: loc, Code: emptyCode,
				Message: "name must be non-empty",
			})
		case seen[name]:
			errs = append(errs, ValidationError{
				Module: spec.Name, Field: loc, Code: dupCode,
				Message: fmt.Sprintf("%q declared more than once", name),
			})
		case name == spec.Name:
			errs = append(errs, ValidationError{
				Module: spec.Name, Field: loc, Code: selfCode,
				Message: selfMsg,
			})
		}
		seen[name] = true
	}
	return errs
}

// ValidateAll validates every spec plus cross-module constraints.
func ValidateAll(specs []ir.ModuleSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(specs))

	for i := range specs {
		errs = append(errs, Validate(&specs[i])...)
		name := specs[i].Name
		if name == "" {
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Module:  name,
				Field:   "name",
				Message: "module declared more than once",
				Code:    ErrDuplicateModuleName,
			})
		}
		seen[name] = true
	}
	return errs
}
