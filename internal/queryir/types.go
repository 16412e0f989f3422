package queryir

// Query represents an abstract query. Sealed to this package.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from a table, filtered by Filter.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <stable key>
//
// Columns must be explicit; there is no SELECT *.
type Select struct {
	From    string    // Table name (e.g., "violations")
	Columns []string  // Columns in result order
	Filter  Predicate // WHERE conditions (nil = no filter)
}

func (Select) queryNode() {}

// Equals is a field-equals-literal predicate.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds an And from the non-nil predicates, or nil when none remain.
func Where(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return And{Predicates: kept}
}

// EqualsIf returns an Equals predicate, or nil when value is empty.
func EqualsIf(field, value string) Predicate {
	if value == "" {
		return nil
	}
	return Equals{Field: field, Value: value}
}
