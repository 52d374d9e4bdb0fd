package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/bigsql/pgadmin4/internal/retry"
)

// Execer matches *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrNoPrimaryKey is returned by key-based operations on a table whose row
// type declares no pk column.
var ErrNoPrimaryKey = errors.New("no primary key defined for table")

// Table maps the row struct T onto one DuckDB table. Columns come from
// `duckdb:"name[,pk][,immutable]"` field tags; immutable columns are written
// on insert and never rewritten by Upsert.
type Table[T any] struct {
	db        Execer
	name      string
	columns   []string
	pkColumns []string
	immutable map[string]bool
	fieldMap  map[string]int
	retry     retry.Config
}

// NewTable builds the column map for T. It panics if T is not a struct,
// which is a programming error.
func NewTable[T any](db Execer, name string) *Table[T] {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ.Kind() != reflect.Struct {
		panic("duckdb.Table row type must be a struct")
	}

	t := &Table[T]{
		db:        db,
		name:      name,
		immutable: make(map[string]bool),
		fieldMap:  make(map[string]int),
		retry:     retry.ConflictConfig(),
	}

	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("duckdb")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		col := strings.TrimSpace(parts[0])
		t.columns = append(t.columns, col)
		t.fieldMap[col] = i

		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				t.pkColumns = append(t.pkColumns, col)
			case "immutable":
				t.immutable[col] = true
			}
		}
	}
	return t
}

// WithTx returns a copy of the table bound to tx. Writes through the copy
// are not retried; the owner of the transaction decides what to do on a
// conflict.
func (t *Table[T]) WithTx(tx *sql.Tx) *Table[T] {
	c := *t
	c.db = tx
	c.retry = retry.Config{MaxRetries: 1}
	return &c
}

// Name is the table name.
func (t *Table[T]) Name() string { return t.name }

// Columns lists the mapped columns in field order.
func (t *Table[T]) Columns() []string { return slices.Clone(t.columns) }

// Insert writes item and fails on a key collision.
func (t *Table[T]) Insert(ctx context.Context, item *T) error {
	query, values := t.insertStatement(item)
	return t.exec(ctx, query, values)
}

// Upsert inserts item or, on a primary key collision, rewrites every column
// that is neither part of the key nor immutable.
func (t *Table[T]) Upsert(ctx context.Context, item *T) error {
	if len(t.pkColumns) == 0 {
		return ErrNoPrimaryKey
	}

	query, values := t.insertStatement(item)

	var updates []string
	for _, col := range t.columns {
		if t.isPK(col) || t.immutable[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	query += fmt.Sprintf(" ON CONFLICT (%s) %s", strings.Join(t.pkColumns, ", "), action)

	return t.exec(ctx, query, values)
}

// Get loads the row whose primary key equals keys, given in pk column order.
// A missing row yields sql.ErrNoRows.
func (t *Table[T]) Get(ctx context.Context, keys ...any) (*T, error) {
	where, err := t.keyClause(keys)
	if err != nil {
		return nil, err
	}

	// #nosec G201 - identifiers come from struct tags
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(t.columns, ", "), t.name, where)

	var item T
	if err := t.db.QueryRowContext(ctx, query, keys...).Scan(t.dest(&item)...); err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes the row with the given primary key and reports whether a
// row existed.
func (t *Table[T]) Delete(ctx context.Context, keys ...any) (bool, error) {
	where, err := t.keyClause(keys)
	if err != nil {
		return false, err
	}

	// #nosec G201 - identifiers come from struct tags
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", t.name, where)

	var affected int64
	err = retry.Do(ctx, t.retry, func() error {
		res, err := t.db.ExecContext(ctx, query, keys...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	}, isTransactionConflict)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Query runs the filters, ordering and limit of qb against this table. The
// builder's projection is replaced by the mapped columns.
func (t *Table[T]) Query(ctx context.Context, qb *Builder) ([]*T, error) {
	q := *qb
	q.table = t.name
	q.columns = t.columns

	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*T
	for rows.Next() {
		var item T
		if err := rows.Scan(t.dest(&item)...); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// List returns every row matching the equality filters, in primary key order.
func (t *Table[T]) List(ctx context.Context, filters map[string]any) ([]*T, error) {
	qb := NewQueryBuilder(t.name)

	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		if _, ok := t.fieldMap[col]; !ok {
			return nil, fmt.Errorf("column %s does not exist in table %s", col, t.name)
		}
		qb.Where(col+" = ?", filters[col])
	}
	qb.OrderBy(t.pkColumns...)

	return t.Query(ctx, qb)
}

func (t *Table[T]) insertStatement(item *T) (string, []any) {
	val := reflect.ValueOf(item).Elem()
	values := make([]any, len(t.columns))
	for i, col := range t.columns {
		values[i] = val.Field(t.fieldMap[col]).Interface()
	}

	// #nosec G201 - identifiers come from struct tags
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name,
		strings.Join(t.columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", "),
	)
	return query, values
}

func (t *Table[T]) exec(ctx context.Context, query string, values []any) error {
	return retry.Do(ctx, t.retry, func() error {
		_, err := t.db.ExecContext(ctx, query, values...)
		return err
	}, isTransactionConflict)
}

func (t *Table[T]) keyClause(keys []any) (string, error) {
	if len(t.pkColumns) == 0 {
		return "", ErrNoPrimaryKey
	}
	if len(keys) != len(t.pkColumns) {
		return "", fmt.Errorf("table %s has %d key columns, got %d values", t.name, len(t.pkColumns), len(keys))
	}
	clauses := make([]string, len(t.pkColumns))
	for i, pk := range t.pkColumns {
		clauses[i] = pk + " = ?"
	}
	return strings.Join(clauses, " AND "), nil
}

func (t *Table[T]) dest(item *T) []any {
	val := reflect.ValueOf(item).Elem()
	dest := make([]any, len(t.columns))
	for i, col := range t.columns {
		dest[i] = val.Field(t.fieldMap[col]).Addr().Interface()
	}
	return dest
}

func (t *Table[T]) isPK(col string) bool {
	return slices.Contains(t.pkColumns, col)
}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "TransactionContext Error") ||
		strings.Contains(msg, "serialization")
}
