package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/refguard/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	spec := &ir.ModuleSpec{Name: "Lib", References: []string{"Core"}, Rules: []string{"Main"}}

	assert.Empty(t, Validate(spec))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  ir.ModuleSpec
		codes []string
	}{
		{"empty name", ir.ModuleSpec{Name: " "}, []string{ErrModuleNameEmpty}},
		{"empty reference", ir.ModuleSpec{Name: "A", References: []string{""}}, []string{ErrReferenceEmpty}},
		{"duplicate reference", ir.ModuleSpec{Name: "A", References: []string{"B", "B"}}, []string{ErrDuplicateReference}},
		{"empty rule", ir.ModuleSpec{Name: "A", Rules: []string{""}}, []string{ErrRuleEmpty}},
		{"duplicate rule", ir.ModuleSpec{Name: "A", Rules: []string{"M", "M"}}, []string{ErrDuplicateRule}},
		{"self rule", ir.ModuleSpec{Name: "A", Rules: []string{"A"}}, []string{ErrSelfRule}},
		{"self reference", ir.ModuleSpec{Name: "A", References: []string{"A"}}, []string{ErrSelfReference}},
		{
			"collects all",
			ir.ModuleSpec{Name: "A", References: []string{"A", ""}, Rules: []string{"X", "X"}},
			[]string{ErrSelfReference, ErrReferenceEmpty, ErrDuplicateRule},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.codes, codes(Validate(&tt.spec)))
		})
	}
}

func TestValidationErrorFormat(t *testing.T) {
	errs := Validate(&ir.ModuleSpec{Name: "A", References: []string{"B", "B"}})
	require.Len(t, errs, 1)

	assert.Equal(t, `[E103] A.references[1]: "B" declared more than once`, errs[0].Error())
	assert.Equal(t, "[E101] name: module name is required and must be non-empty",
		Validate(&ir.ModuleSpec{})[0].Error())
}

func TestValidateAllDuplicateModule(t *testing.T) {
	specs := []ir.ModuleSpec{{Name: "A"}, {Name: "B"}, {Name: "A"}}

	errs := ValidateAll(specs)

	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateModuleName, errs[0].Code)
	assert.Equal(t, "A", errs[0].Module)
}
