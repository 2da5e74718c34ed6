package database

import (
	"fmt"
	"strings"
)

// whereBuilder assembles a parameterized WHERE clause.
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{}
}

// Add appends "column = $n" when value is non-empty.
func (w *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

// AddExpr appends an expression whose single placeholder is written as "?".
func (w *whereBuilder) AddExpr(expr string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, strings.Replace(expr, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

// AddRaw appends a condition without arguments.
func (w *whereBuilder) AddRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// AddSearch matches value case-insensitively against any of columns.
func (w *whereBuilder) AddSearch(value string, columns ...string) {
	value = strings.TrimSpace(value)
	if value == "" || len(columns) == 0 {
		return
	}
	w.args = append(w.args, "%"+escapeLike(value)+"%")
	idx := len(w.args)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", c, idx)
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

// Build returns the clause (with a leading " WHERE ", or "") and its args.
func (w *whereBuilder) Build() (string, []any) {
	if len(w.conds) == 0 {
		return "", w.args
	}
	return " WHERE " + strings.Join(w.conds, " AND "), w.args
}

// NextArgIndex returns the placeholder index after the current args.
func (w *whereBuilder) NextArgIndex() int {
	return len(w.args) + 1
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
