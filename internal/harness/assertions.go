package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/refguard/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Module)
			if len(event.Dropped) > 0 {
				fmt.Fprintf(&buf, " dropped=%v", event.Dropped)
			}
			for _, path := range event.Violations {
				fmt.Fprintf(&buf, " %s", strings.Join(path, "->"))
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides store access for assertions on persisted data.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
	RunID string
}

func assertViolationCount(result *Result, a Assertion) error {
	count := len(result.ViolationPaths())
	if count != a.Count {
		return &AssertionError{
			Type:     AssertViolationCount,
			Expected: fmt.Sprintf("%d violations", a.Count),
			Actual:   fmt.Sprintf("%d violations", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertViolationPath(result *Result, a Assertion) error {
	for _, path := range result.ViolationPaths() {
		if equalNames(path, a.Path) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertViolationPath,
		Expected: fmt.Sprintf("violation with path %s", strings.Join(a.Path, "->")),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

func assertNoViolation(result *Result, a Assertion) error {
	for _, path := range result.ViolationPaths() {
		referencer, declarer := path[0], path[len(path)-1]
		if (a.Referencer == "" || a.Referencer == referencer) &&
			(a.Declarer == "" || a.Declarer == declarer) {
			return &AssertionError{
				Type:     AssertNoViolation,
				Expected: fmt.Sprintf("no violation for referencer=%q declarer=%q", a.Referencer, a.Declarer),
				Actual:   fmt.Sprintf("found %s", strings.Join(path, "->")),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertDroppedReference(result *Result, a Assertion) error {
	for _, event := range result.Trace {
		if event.Module != a.Module {
			continue
		}
		for _, dropped := range event.Dropped {
			if dropped == a.Reference {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertDroppedReference,
		Expected: fmt.Sprintf("%s dropped reference %s", a.Module, a.Reference),
		Actual:   "no such dropped reference",
		Trace:    result.Trace,
	}
}

func assertStoredViolations(actx *AssertionContext, a Assertion) error {
	stored, err := actx.Store.QueryViolations(actx.Ctx, store.ViolationFilter{
		RunID:      actx.RunID,
		Referencer: a.Referencer,
		Declarer:   a.Declarer,
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredViolations,
			Expected: fmt.Sprintf("%d stored violations", a.Count),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if len(stored) != a.Count {
		return &AssertionError{
			Type:     AssertStoredViolations,
			Expected: fmt.Sprintf("%d stored violations (referencer=%q declarer=%q)", a.Count, a.Referencer, a.Declarer),
			Actual:   fmt.Sprintf("%d stored violations", len(stored)),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for stored_violations assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertViolationCount:
			err = assertViolationCount(result, assertion)
		case AssertViolationPath:
			err = assertViolationPath(result, assertion)
		case AssertNoViolation:
			err = assertNoViolation(result, assertion)
		case AssertDroppedReference:
			err = assertDroppedReference(result, assertion)
		case AssertStoredViolations:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_violations requires database context", i)
			} else {
				err = assertStoredViolations(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
