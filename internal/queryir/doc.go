// Package queryir provides a small query IR for reading stored runs.
//
// Queries are built as values and compiled by a backend (internal/querysql)
// into parameterized SQL. Keeping the IR separate lets the CLI and harness
// describe filters without building SQL strings, and lets Validate reject
// unknown tables and columns before anything reaches the database.
//
// Query and Predicate are sealed interfaces: only types in this package
// implement them, so backends can switch exhaustively.
//
//	Select{
//	  From:    "violations",
//	  Columns: []string{"referencer", "declarer", "path"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: "0193..."},
//	    Equals{Field: "declarer", Value: "Lib"},
//	  }},
//	}
//
// Literal values are limited to string, int, int64 and bool.
package queryir
