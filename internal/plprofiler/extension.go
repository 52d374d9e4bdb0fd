package plprofiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// extension resolves the schema plprofiler was installed into so every call
// is schema-qualified, whatever the backend's search_path. The lookup runs
// once per handle.
type extension struct {
	q Querier

	mu     sync.Mutex
	schema string
}

func newExtension(q Querier) *extension {
	return &extension{q: q}
}

func (x *extension) namespace(ctx context.Context) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.schema != "" {
		return x.schema, nil
	}

	var schema string
	err := x.q.QueryRow(ctx, `
		SELECT N.nspname
		FROM pg_catalog.pg_extension E
		JOIN pg_catalog.pg_namespace N ON N.oid = E.extnamespace
		WHERE E.extname = $1`, ExtensionName).Scan(&schema)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", pgerrors.Errorf(pgerrors.KindConfiguration, "plprofiler.extension",
			"the %s extension is not installed in this database", ExtensionName)
	}
	if err != nil {
		return "", fmt.Errorf("failed to locate the %s extension: %w", ExtensionName, err)
	}
	x.schema = schema
	return schema, nil
}

// qualified returns name as a quoted "<schema>"."<name>".
func (x *extension) qualified(ctx context.Context, name string) (string, error) {
	schema, err := x.namespace(ctx)
	if err != nil {
		return "", err
	}
	return pgx.Identifier{schema, name}.Sanitize(), nil
}

// call renders a qualified call of name with nargs positional parameters.
func (x *extension) call(ctx context.Context, name string, nargs int) (string, error) {
	fn, err := x.qualified(ctx, name)
	if err != nil {
		return "", err
	}
	params := make([]string, nargs)
	for i := range params {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fn + "(" + strings.Join(params, ", ") + ")", nil
}
