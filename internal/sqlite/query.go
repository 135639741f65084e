package sqlite

import (
	"strings"
)

// predicates composes a WHERE clause from parametrized conditions. Column
// names come from constants in this package; every value, including user
// search text, is a bound argument.
type predicates struct {
	clauses []string
	args    []any
}

// add appends a condition with its arguments. An empty clause is ignored.
func (p *predicates) add(clause string, args ...any) *predicates {
	if clause == "" {
		return p
	}
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
	return p
}

// eq appends "column = ?".
func (p *predicates) eq(column string, v any) *predicates {
	return p.add(column+" = ?", v)
}

// optEq appends "column = ?" when v is non-nil.
func (p *predicates) optEq(column string, v *int64) *predicates {
	if v == nil {
		return p
	}
	return p.eq(column, *v)
}

// flag appends "column = 1" or "column = 0".
func (p *predicates) flag(column string, v bool) *predicates {
	return p.eq(column, boolToInt(v))
}

// halfOpen appends "column >= from" and "column < to" for the bounds given.
func (p *predicates) halfOpen(column string, from, to *int64) *predicates {
	if from != nil {
		p.add(column+" >= ?", *from)
	}
	if to != nil {
		p.add(column+" < ?", *to)
	}
	return p
}

// contains appends a literal substring match on column. LIKE wildcards in
// text are escaped so they match themselves.
func (p *predicates) contains(column, text string) *predicates {
	return p.add(column+` LIKE ? ESCAPE '\'`, "%"+escapeLike(text)+"%")
}

// in appends "column IN (?, ...)". An empty list matches nothing.
func (p *predicates) in(column string, ids []int64) *predicates {
	if len(ids) == 0 {
		return p.add("0")
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return p.add(column+" IN ("+placeholders(len(ids))+")", args...)
}

// where renders " WHERE a AND b", or "" when there are no conditions.
func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// values returns the bound arguments in clause order.
func (p *predicates) values() []any {
	return p.args
}

// selectQuery renders a SELECT over table with the given predicates and
// ORDER BY clause.
func selectQuery(columns, table string, p *predicates, orderBy string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(p.where())
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	return b.String(), p.values()
}

// escapeLike escapes the LIKE metacharacters and the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
