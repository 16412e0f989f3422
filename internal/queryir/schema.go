package queryir

// Tables lists the queryable tables and their columns.
var Tables = map[string][]string{
	"runs": {
		"id", "manifest_hash", "max_depth", "run_order", "engine_version", "ir_version",
	},
	"ingestions": {
		"run_id", "seq", "module", "module_references", "module_rules", "dropped", "truncated",
	},
	"violations": {
		"run_id", "seq", "ordinal", "violation_hash", "code", "referencer", "declarer", "path",
	},
}

// HasColumn reports whether table has column.
func HasColumn(table, column string) bool {
	for _, c := range Tables[table] {
		if c == column {
			return true
		}
	}
	return false
}
