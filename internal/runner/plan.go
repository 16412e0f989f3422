package runner

import (
	"fmt"

	"github.com/roach88/refguard/internal/compiler"
	"github.com/roach88/refguard/internal/ir"
)

// Order selects how a manifest is split into waves.
type Order string

const (
	// OrderDeclared ingests modules one at a time in manifest order.
	OrderDeclared Order = "declared"

	// OrderTopo ingests dependencies before dependents, in parallel waves.
	OrderTopo Order = "topo"
)

// ParseOrder converts a configuration value to an Order.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderDeclared, OrderTopo:
		return Order(s), nil
	default:
		return "", fmt.Errorf("unknown order %q (want %q or %q)", s, OrderDeclared, OrderTopo)
	}
}

// Plan splits specs into ingestion waves.
//
// OrderDeclared yields one single-module wave per spec and allows a module
// to appear more than once, which re-ingests it. OrderTopo follows
// compiler.TopologicalWaves and requires unique module names.
func Plan(specs []ir.ModuleSpec, order Order) ([][]ir.ModuleSpec, error) {
	switch order {
	case OrderDeclared:
		waves := make([][]ir.ModuleSpec, 0, len(specs))
		for _, spec := range specs {
			waves = append(waves, []ir.ModuleSpec{spec})
		}
		return waves, nil

	case OrderTopo:
		byName := make(map[string]ir.ModuleSpec, len(specs))
		for _, spec := range specs {
			if _, dup := byName[spec.Name]; dup {
				return nil, fmt.Errorf("module %q declared more than once; topo order needs unique names", spec.Name)
			}
			byName[spec.Name] = spec
		}

		names := compiler.TopologicalWaves(specs)
		waves := make([][]ir.ModuleSpec, 0, len(names))
		for _, wave := range names {
			specsInWave := make([]ir.ModuleSpec, 0, len(wave))
			for _, name := range wave {
				specsInWave = append(specsInWave, byName[name])
			}
			waves = append(waves, specsInWave)
		}
		return waves, nil

	default:
		return nil, fmt.Errorf("unknown order %q", order)
	}
}
