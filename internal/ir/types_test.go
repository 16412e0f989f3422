package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationMessage(t *testing.T) {
	tests := []struct {
		name     string
		v        Violation
		expected string
	}{
		{
			name:     "direct",
			v:        NewViolation("Main", "Lib", []string{"Main", "Lib"}),
			expected: "Module Main has a forbidden reference to module Lib. Reference chain: Main->Lib.",
		},
		{
			name:     "transitive",
			v:        NewViolation("Main", "Lib", []string{"Main", "Lib2", "Lib"}),
			expected: "Module Main has a forbidden reference to module Lib. Reference chain: Main->Lib2->Lib.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, DiagnosticCode, tt.v.Code)
			assert.Equal(t, tt.expected, tt.v.Message())
		})
	}
}

func TestModuleSpecJSONTags(t *testing.T) {
	var spec ModuleSpec
	err := json.Unmarshal([]byte(`{"name":"Lib","references":["Core"],"cannot_be_referenced_by":["Main"]}`), &spec)
	require.NoError(t, err)

	assert.Equal(t, ModuleSpec{Name: "Lib", References: []string{"Core"}, Rules: []string{"Main"}}, spec)
}
