package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect describes what differs between the SQL backends.
type Dialect interface {
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// CastInt casts an expression to a 64-bit integer.
	CastInt(expr string) string
	// DayKey turns a unix-seconds expression into a "dYYMMDD" UTC day key.
	DayKey(expr string) string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) CastInt(expr string) string { return "CAST(" + expr + " AS INTEGER)" }
func (sqliteDialect) DayKey(expr string) string {
	return "'d' || substr(strftime('%Y%m%d', " + expr + ", 'unixepoch'), 3)"
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) CastInt(expr string) string { return "CAST(" + expr + " AS BIGINT)" }
func (postgresDialect) DayKey(expr string) string {
	return "'d' || to_char(to_timestamp(" + expr + ") AT TIME ZONE 'UTC', 'YYMMDD')"
}

// query accumulates SQL text and its bind arguments, numbering
// placeholders for the dialect as arguments are added.
type query struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newQuery(d Dialect) *query { return &query{d: d} }

// sql appends raw SQL text.
func (q *query) sql(parts ...string) *query {
	for _, p := range parts {
		q.sb.WriteString(p)
	}
	return q
}

// arg appends a placeholder bound to v.
func (q *query) arg(v any) *query {
	q.args = append(q.args, v)
	q.sb.WriteString(q.d.Placeholder(len(q.args)))
	return q
}

// list appends comma-separated placeholders for vs.
func (q *query) list(vs ...any) *query {
	for i, v := range vs {
		if i > 0 {
			q.sb.WriteString(", ")
		}
		q.arg(v)
	}
	return q
}

// in appends "col IN (...)" for ids, or a false predicate when ids is empty.
func (q *query) in(col string, ids []int64) *query {
	if len(ids) == 0 {
		return q.sql("1 = 0")
	}
	q.sql(col, " IN (")
	for i, id := range ids {
		if i > 0 {
			q.sb.WriteString(", ")
		}
		q.arg(id)
	}
	return q.sql(")")
}

func (q *query) String() string { return q.sb.String() }
func (q *query) Args() []any { return q.args }

// placeholderRow returns "(p1, p2, ...)" of n placeholders starting at from.
func placeholderRow(d Dialect, from, n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.Placeholder(from + i))
	}
	sb.WriteByte(')')
	return sb.String()
}

// positionClassSQL maps a stored position to its cache class, mirroring
// model.Position.Class.
func positionClassSQL(col string) string {
	return fmt.Sprintf(`CASE %s WHEN 'B' THEN 'B' WHEN 'S' THEN 'S' WHEN '0' THEN 'D' WHEN '1' THEN 'C'
		WHEN '2' THEN 'M' WHEN '3' THEN 'M' WHEN '4' THEN 'M' ELSE 'E' END`, col)
}
