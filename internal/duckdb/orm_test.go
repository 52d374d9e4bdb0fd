package duckdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type argRow struct {
	RoutineID int64          `duckdb:"routine_id,pk"`
	ArgID     int64          `duckdb:"arg_id,pk"`
	Label     string         `duckdb:"label,immutable"`
	Value     sql.NullString `duckdb:"value"`
	IsNull    bool           `duckdb:"is_null"`
	Scratch   string
}

func newArgTable(t *testing.T) (*sql.DB, *Table[argRow]) {
	t.Helper()
	db, err := OpenDB(MemoryDSN, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE args (
		routine_id BIGINT NOT NULL,
		arg_id BIGINT NOT NULL,
		label VARCHAR NOT NULL,
		value VARCHAR,
		is_null BOOLEAN NOT NULL,
		PRIMARY KEY (routine_id, arg_id)
	)`)
	require.NoError(t, err)

	return db, NewTable[argRow](db, "args")
}

func TestNewTable_ColumnMapping(t *testing.T) {
	tbl := NewTable[argRow](nil, "args")

	assert.Equal(t, "args", tbl.Name())
	assert.Equal(t, []string{"routine_id", "arg_id", "label", "value", "is_null"}, tbl.Columns())
	assert.Equal(t, []string{"routine_id", "arg_id"}, tbl.pkColumns)
	assert.True(t, tbl.immutable["label"])
}

func TestNewTable_PanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() { NewTable[int](nil, "x") })
}

func TestTable_InsertGetDelete(t *testing.T) {
	ctx := context.Background()
	_, tbl := newArgTable(t)

	row := &argRow{RoutineID: 10, ArgID: 0, Label: "a", Value: sql.NullString{String: "42", Valid: true}}
	require.NoError(t, tbl.Insert(ctx, row))
	assert.Error(t, tbl.Insert(ctx, row), "duplicate key must fail")

	got, err := tbl.Get(ctx, int64(10), int64(0))
	require.NoError(t, err)
	assert.Equal(t, "42", got.Value.String)
	assert.Equal(t, "a", got.Label)

	_, err = tbl.Get(ctx, int64(10), int64(1))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = tbl.Get(ctx, int64(10))
	assert.Error(t, err, "wrong key arity")

	deleted, err := tbl.Delete(ctx, int64(10), int64(0))
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = tbl.Delete(ctx, int64(10), int64(0))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTable_UpsertKeepsImmutableColumns(t *testing.T) {
	ctx := context.Background()
	_, tbl := newArgTable(t)

	require.NoError(t, tbl.Upsert(ctx, &argRow{RoutineID: 1, ArgID: 0, Label: "first", Value: sql.NullString{String: "x", Valid: true}}))
	require.NoError(t, tbl.Upsert(ctx, &argRow{RoutineID: 1, ArgID: 0, Label: "second", IsNull: true}))

	got, err := tbl.Get(ctx, int64(1), int64(0))
	require.NoError(t, err)
	assert.Equal(t, "first", got.Label)
	assert.False(t, got.Value.Valid)
	assert.True(t, got.IsNull)
}

func TestTable_ListAndQuery(t *testing.T) {
	ctx := context.Background()
	_, tbl := newArgTable(t)

	for _, r := range []*argRow{
		{RoutineID: 2, ArgID: 1, Label: "b"},
		{RoutineID: 1, ArgID: 0, Label: "z"},
		{RoutineID: 2, ArgID: 0, Label: "a"},
	} {
		require.NoError(t, tbl.Insert(ctx, r))
	}

	rows, err := tbl.List(ctx, map[string]any{"routine_id": int64(2)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(0), rows[0].ArgID)
	assert.Equal(t, int64(1), rows[1].ArgID)

	_, err = tbl.List(ctx, map[string]any{"nope": 1})
	assert.Error(t, err)

	rows, err = tbl.Query(ctx, NewQueryBuilder("ignored").Select("label").OrderBy("-label").Limit(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "z", rows[0].Label)
	assert.Equal(t, "b", rows[1].Label)
}

func TestTable_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	db, tbl := newArgTable(t)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.WithTx(tx).Insert(ctx, &argRow{RoutineID: 5, Label: "tx"}))
	require.NoError(t, tx.Rollback())

	_, err = tbl.Get(ctx, int64(5), int64(0))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestIsTransactionConflict(t *testing.T) {
	assert.False(t, isTransactionConflict(nil))
	assert.True(t, isTransactionConflict(sqlErr("TransactionContext Error: Conflict on update!")))
	assert.False(t, isTransactionConflict(sqlErr("Constraint Error: duplicate key")))
}

type sqlErr string

func (e sqlErr) Error() string { return string(e) }
