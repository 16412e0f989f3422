package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	Problems []string
}

// Validate checks that a query names known tables and columns and uses
// supported literal types. Backends interpolate table and column names, so
// only validated queries may be compiled.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if _, ok := Tables[sel.From]; !ok {
		v.addProblem("unknown table %q", sel.From)
		return
	}
	if len(sel.Columns) == 0 {
		v.addProblem("no columns selected from %q", sel.From)
	}
	for _, col := range sel.Columns {
		if !HasColumn(sel.From, col) {
			v.addProblem("unknown column %q in table %q", col, sel.From)
		}
	}
	v.validatePredicate(sel.From, sel.Filter)
}

func (v *validator) validatePredicate(table string, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(table, pred)
	case *Equals:
		v.validateEquals(table, *pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(table string, eq Equals) {
	if !HasColumn(table, eq.Field) {
		v.addProblem("unknown column %q in table %q", eq.Field, table)
	}
	switch eq.Value.(type) {
	case string, int, int64, bool:
	case nil:
		v.addProblem("column %q compared to NULL", eq.Field)
	default:
		v.addProblem("column %q compared to unsupported type %T", eq.Field, eq.Value)
	}
}
