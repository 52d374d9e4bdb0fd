package plprofiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

// ResultSet holds the rows returned by a profiled execution.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// BuildCall renders the statement running t with args, returning the SQL and
// its bind parameters. args are indexed like t.ArgTypes; missing trailing
// values fall back to the default or NULL. Functions are run with SELECT * FROM, procedures with
// CALL. Values are bound as text and cast to the argument type. Arguments marked UseDefault are omitted; any later argument is then
// passed by name.
func BuildCall(t *session.DirectTarget, args []session.Argument) (string, []any, error) {
	const op = "plprofiler.BuildCall"

	var (
		parts  []string
		params []any
		named  bool
	)
	for i, typ := range t.ArgTypes {
		mode := ""
		if i < len(t.ArgModes) {
			mode = t.ArgModes[i]
		}
		if !isInputMode(mode) {
			// Procedures take a placeholder for OUT arguments.
			if !t.IsFunction && mode == "o" {
				parts = append(parts, "NULL")
			}
			continue
		}

		var a session.Argument
		switch {
		case i < len(args):
			a = args[i]
		case i < len(t.DefaultValues) && t.DefaultValues[i] != "":
			a.UseDefault = true
		default:
			a.IsNull = true
		}

		if a.UseDefault {
			if i >= len(t.DefaultValues) || t.DefaultValues[i] == "" {
				return "", nil, pgerrors.Errorf(pgerrors.KindConfiguration, op,
					"argument %d has no default value", i+1)
			}
			named = true
			continue
		}

		var value string
		switch {
		case a.IsNull:
			value = "NULL"
		case a.IsExpression:
			value = "(" + a.Value + ")"
		default:
			params = append(params, a.Value)
			value = fmt.Sprintf("$%d::text::%s", len(params), typ)
		}

		if named {
			if i >= len(t.ArgNames) || t.ArgNames[i] == "" {
				return "", nil, pgerrors.Errorf(pgerrors.KindConfiguration, op,
					"argument %d follows a defaulted argument and has no name", i+1)
			}
			value = pgx.Identifier{t.ArgNames[i]}.Sanitize() + " => " + value
		}
		parts = append(parts, value)
	}

	name := pgx.Identifier{t.Schema, t.Name}.Sanitize()
	call := name + "(" + strings.Join(parts, ", ") + ")"
	if t.IsFunction {
		return "SELECT * FROM " + call, params, nil
	}
	return "CALL " + call, params, nil
}

// Execute runs t on q and collects its result rows.
func Execute(ctx context.Context, q Querier, t *session.DirectTarget, args []session.Argument) (*ResultSet, error) {
	sql, params, err := BuildCall(t, args)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s.%s: %w", t.Schema, t.Name, err)
	}
	defer rows.Close()

	rs := &ResultSet{}
	for _, fd := range rows.FieldDescriptions() {
		rs.Columns = append(rs.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read result row: %w", err)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to execute %s.%s: %w", t.Schema, t.Name, err)
	}
	return rs, nil
}
