package plprofiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

// Database identifies the connected database.
type Database struct {
	OID  uint32
	Name string
}

// CurrentDatabase returns the database q is connected to.
func CurrentDatabase(ctx context.Context, q Querier) (Database, error) {
	var db Database
	err := q.QueryRow(ctx, `
		SELECT oid, datname FROM pg_catalog.pg_database
		WHERE datname = pg_catalog.current_database()`).Scan(&db.OID, &db.Name)
	if err != nil {
		return Database{}, fmt.Errorf("failed to get current database: %w", err)
	}
	return db, nil
}

// routineQuery loads a routine's profile information. Argument type, name
// and mode arrays use proallargtypes when present so OUT arguments line up
// with their modes.
const routineQuery = `
	SELECT P.oid, P.proname, N.oid, N.nspname,
	       P.prokind <> 'p' AS is_function,
	       L.lanname,
	       pg_catalog.format_type(P.prorettype, NULL),
	       coalesce(ARRAY(
	           SELECT pg_catalog.format_type(T.typ, NULL)
	           FROM unnest(coalesce(P.proallargtypes, P.proargtypes::oid[])) WITH ORDINALITY AS T(typ, pos)
	           ORDER BY T.pos), '{}'::text[]),
	       coalesce(P.proargnames, '{}'::text[]),
	       coalesce(P.proargmodes::text[], '{}'::text[]),
	       P.pronargdefaults,
	       coalesce(pg_catalog.pg_get_expr(P.proargdefaults, 'pg_catalog.pg_class'::regclass), ''),
	       coalesce(P.prosrc, '')
	FROM pg_catalog.pg_proc P
	JOIN pg_catalog.pg_namespace N ON N.oid = P.pronamespace
	JOIN pg_catalog.pg_language L ON L.oid = P.prolang
	WHERE P.oid = $1`

// LoadDirectTarget introspects routine oid. A missing routine is a
// RoutineNotFound error.
func LoadDirectTarget(ctx context.Context, q Querier, oid uint32) (*session.DirectTarget, error) {
	var (
		t         session.DirectTarget
		nDefaults int16
		defaults  string
	)
	err := q.QueryRow(ctx, routineQuery, oid).Scan(
		&t.OID, &t.Name, &t.SchemaOID, &t.Schema,
		&t.IsFunction, &t.Language, &t.ReturnType,
		&t.ArgTypes, &t.ArgNames, &t.ArgModes,
		&nDefaults, &defaults, &t.Source,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pgerrors.RoutineNotFound("plprofiler.LoadDirectTarget", oid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load routine %d: %w", oid, err)
	}

	t.DefaultValues = alignDefaults(t.ArgTypes, t.ArgModes, splitDefaults(defaults), int(nDefaults))
	t.RequiresInput = session.RequiresInput(t.ArgTypes, t.ArgModes)
	return &t, nil
}

// isInputMode reports whether an argument with mode takes a caller value.
// An empty mode means the routine declares only IN arguments.
func isInputMode(mode string) bool {
	switch mode {
	case "", "i", "b", "v":
		return true
	}
	return false
}

// alignDefaults places defaults on the trailing input arguments, returning
// one entry per argument with "" where no default exists.
func alignDefaults(types, modes, defaults []string, n int) []string {
	if n == 0 || len(defaults) == 0 {
		return nil
	}
	out := make([]string, len(types))

	var inputs []int
	for i := range types {
		mode := ""
		if i < len(modes) {
			mode = modes[i]
		}
		if isInputMode(mode) {
			inputs = append(inputs, i)
		}
	}
	if n > len(defaults) {
		n = len(defaults)
	}
	if n > len(inputs) {
		n = len(inputs)
	}
	for k := 0; k < n; k++ {
		out[inputs[len(inputs)-n+k]] = defaults[len(defaults)-n+k]
	}
	return out
}

// splitDefaults splits pg_get_expr output on top-level commas.
func splitDefaults(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c == '\'':
			quote = !quote
		case quote:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(expr[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(expr[start:]))
}
