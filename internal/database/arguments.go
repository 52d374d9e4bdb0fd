package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// RoutineKey identifies a routine across servers.
type RoutineKey struct {
	ServerID    string
	DatabaseOID uint32
	SchemaOID   uint32
	FunctionOID uint32
}

// SavedArgument is one remembered input value of a routine.
type SavedArgument struct {
	ServerID     string         `duckdb:"server_id,pk"`
	DatabaseID   int64          `duckdb:"database_id,pk"`
	SchemaID     int64          `duckdb:"schema_id,pk"`
	FunctionID   int64          `duckdb:"function_id,pk"`
	ArgID        int64          `duckdb:"arg_id,pk"`
	IsNull       bool           `duckdb:"is_null"`
	IsExpression bool           `duckdb:"is_expression"`
	UseDefault   bool           `duckdb:"use_default"`
	Value        sql.NullString `duckdb:"value"`
}

// ArgumentInput is a value to remember for argument position ArgID.
type ArgumentInput struct {
	ArgID        int
	IsNull       bool
	IsExpression bool
	UseDefault   bool
	// Value is a string, a list of strings or nil.
	Value any
}

// SavedArguments returns the remembered arguments of a routine ordered by
// position. A routine with nothing saved yields an empty slice.
func (d *Database) SavedArguments(ctx context.Context, key RoutineKey) ([]*SavedArgument, error) {
	args, err := d.arguments.List(ctx, map[string]any{
		"server_id":   key.ServerID,
		"database_id": int64(key.DatabaseOID),
		"schema_id":   int64(key.SchemaOID),
		"function_id": int64(key.FunctionOID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list saved arguments: %w", err)
	}
	return args, nil
}

// SaveArguments upserts every input for the routine in one transaction.
func (d *Database) SaveArguments(ctx context.Context, key RoutineKey, inputs []ArgumentInput) error {
	tx, err := d.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	table := d.arguments.WithTx(tx)
	for _, in := range inputs {
		row := &SavedArgument{
			ServerID:     key.ServerID,
			DatabaseID:   int64(key.DatabaseOID),
			SchemaID:     int64(key.SchemaOID),
			FunctionID:   int64(key.FunctionOID),
			ArgID:        int64(in.ArgID),
			IsNull:       in.IsNull,
			IsExpression: in.IsExpression,
			UseDefault:   in.UseDefault,
		}
		if v, ok := FormatValue(in.Value); ok {
			row.Value = sql.NullString{String: v, Valid: true}
		}
		if err := table.Upsert(ctx, row); err != nil {
			return fmt.Errorf("failed to save argument %d: %w", in.ArgID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit saved arguments: %w", err)
	}
	return nil
}

// FormatValue renders an argument value for storage. Lists are joined with
// commas and nil elements become NULL. ok is false for a nil value.
func FormatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case []string:
		return strings.Join(val, ","), true
	case []*string:
		parts := make([]string, len(val))
		for i, p := range val {
			if p == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = *p
		}
		return strings.Join(parts, ","), true
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			if p == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(val), true
	}
}
