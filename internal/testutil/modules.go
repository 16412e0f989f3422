package testutil

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/refguard/internal/ir"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Module builds a spec with the given references and rules.
func Module(name string, refs []string, rules ...string) ir.ModuleSpec {
	return ir.ModuleSpec{Name: name, References: refs, Rules: rules}
}

// Chain builds prefix0..prefix(n-1) where each module references the one
// before it. The first module declares rules.
//
//	Chain("M", 3, "M2") => M0{rules: M2}, M1 -> M0, M2 -> M1
func Chain(prefix string, n int, rules ...string) []ir.ModuleSpec {
	specs := make([]ir.ModuleSpec, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if i == 0 {
			specs = append(specs, Module(name, nil, rules...))
			continue
		}
		specs = append(specs, Module(name, []string{fmt.Sprintf("%s%d", prefix, i-1)}))
	}
	return specs
}
