package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/refguard/internal/ir"
)

// CompileModule parses one module manifest entry into a ModuleSpec.
//
// The CUE value is the module struct itself; its label is the module name:
//
//	module: Lib: {
//		references: ["Core"]
//		cannot_be_referenced_by: ["Main"]
//	}
//
//	spec, err := CompileModule(v.LookupPath(cue.ParsePath("module.Lib")))
//
// Both lists are optional and keep their declared order. A string `name`
// field overrides the label.
func CompileModule(v cue.Value) (*ir.ModuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   "module",
			Message: fmt.Sprintf("module must be a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	spec := &ir.ModuleSpec{Name: labelOf(v)}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		switch field := iter.Selector().String(); field {
		case "name":
			spec.Name, err = iter.Value().String()
			if err != nil {
				err = &CompileError{Field: field, Message: "name must be a string", Pos: iter.Value().Pos()}
			}
		case "references":
			spec.References, err = parseStringList(iter.Value(), field)
		case "cannot_be_referenced_by":
			spec.Rules, err = parseStringList(iter.Value(), field)
		default:
			err = &CompileError{
				Field:   field,
				Message: "unknown field (expected name, references or cannot_be_referenced_by)",
				Pos:     iter.Value().Pos(),
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// labelOf returns the unquoted last path label, so `"My.Module": {}` yields
// My.Module.
func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	last := sels[len(sels)-1]
	if last.LabelType() == cue.StringLabel {
		return last.Unquoted()
	}
	return last.String()
}

func parseStringList(v cue.Value, field string) ([]string, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a list of strings", field),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s entries must be strings", field),
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
