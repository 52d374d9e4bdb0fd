package duckdb

import (
	"errors"
	"fmt"
	"strings"
)

// Builder constructs SELECT queries with a fluent API. It only generates SQL
// and never runs it.
type Builder struct {
	table   string
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   int
	offset  int
}

type whereClause struct {
	expr string
	args []any
}

type orderClause struct {
	column string
	desc   bool
}

// NewQueryBuilder starts a query against table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{table: table}
}

// Select sets the projected columns. Without it the query selects *.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds a raw condition. Conditions are joined with AND.
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.where = append(b.where, whereClause{expr: expr, args: args})
	return b
}

// Eq adds column = value. An empty string value is skipped.
func (b *Builder) Eq(column string, value any) *Builder {
	if s, ok := value.(string); ok && s == "" {
		return b
	}
	return b.Where(column+" = ?", value)
}

// In adds column IN (...). An empty list is skipped.
func (b *Builder) In(column string, values ...any) *Builder {
	if len(values) == 0 {
		return b
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return b.Where(fmt.Sprintf("%s IN (%s)", column, marks), values...)
}

// Contains adds a case-insensitive substring match. An empty needle is skipped.
func (b *Builder) Contains(column, needle string) *Builder {
	if needle == "" {
		return b
	}
	return b.Where(fmt.Sprintf(`%s ILIKE ? ESCAPE '\'`, column), "%"+escapeLike(needle)+"%")
}

// Gte adds column >= value.
func (b *Builder) Gte(column string, value any) *Builder {
	return b.Where(column+" >= ?", value)
}

// Lt adds column < value.
func (b *Builder) Lt(column string, value any) *Builder {
	return b.Where(column+" < ?", value)
}

// OrderBy appends sort keys. A "-" prefix sorts descending.
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, col := range columns {
		if rest, ok := strings.CutPrefix(col, "-"); ok {
			b.orderBy = append(b.orderBy, orderClause{column: rest, desc: true})
			continue
		}
		b.orderBy = append(b.orderBy, orderClause{column: col})
	}
	return b
}

// Limit caps the row count. Zero or negative means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips the first n rows. It is only emitted together with a limit.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Build returns the SQL text and its positional arguments.
func (b *Builder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errors.New("table name is required")
	}

	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	if len(b.where) > 0 {
		exprs := make([]string, len(b.where))
		for i, w := range b.where {
			exprs[i] = w.expr
			args = append(args, w.args...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(exprs, " AND "))
	}

	if len(b.orderBy) > 0 {
		keys := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			keys[i] = o.column
			if o.desc {
				keys[i] += " DESC"
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}

	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
		if b.offset > 0 {
			fmt.Fprintf(&sb, " OFFSET %d", b.offset)
		}
	}

	return sb.String(), args, nil
}

// MustBuild is Build for statically known queries. It panics on error.
func (b *Builder) MustBuild() (string, []any) {
	q, args, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
