package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/refguard/internal/ir"
)

// marshalNames stores a name list as canonical JSON TEXT. A nil list is
// stored as "[]".
func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := ir.MarshalCanonical(names)
	if err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	return string(data), nil
}

// unmarshalNames parses a stored name list. Returns an empty slice, never nil.
func unmarshalNames(data string) ([]string, error) {
	names := []string{}
	if data == "" || data == "[]" {
		return names, nil
	}
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}
