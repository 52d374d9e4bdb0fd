package plprofiler

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

func TestBuildCall(t *testing.T) {
	tests := []struct {
		name       string
		target     session.DirectTarget
		args       []session.Argument
		wantSQL    string
		wantParams []any
	}{
		{
			name:    "no arguments",
			target:  session.DirectTarget{Schema: "public", Name: "tick", IsFunction: true},
			wantSQL: `SELECT * FROM "public"."tick"()`,
		},
		{
			name: "bound values and null",
			target: session.DirectTarget{
				Schema: "app", Name: "Add", IsFunction: true,
				ArgTypes: []string{"integer", "text"},
			},
			args:       []session.Argument{{Value: "1"}, {IsNull: true}},
			wantSQL:    `SELECT * FROM "app"."Add"($1::text::integer, NULL)`,
			wantParams: []any{"1"},
		},
		{
			name: "expression argument",
			target: session.DirectTarget{
				Schema: "public", Name: "at", IsFunction: true,
				ArgTypes: []string{"timestamp with time zone"},
			},
			args:    []session.Argument{{Value: "now()", IsExpression: true}},
			wantSQL: `SELECT * FROM "public"."at"((now()))`,
		},
		{
			name: "procedure with out argument",
			target: session.DirectTarget{
				Schema: "public", Name: "fill", IsFunction: false,
				ArgTypes: []string{"integer", "integer"},
				ArgModes: []string{"i", "o"},
			},
			args:       []session.Argument{{Value: "5"}},
			wantSQL:    `CALL "public"."fill"($1::text::integer, NULL)`,
			wantParams: []any{"5"},
		},
		{
			name: "function out arguments omitted",
			target: session.DirectTarget{
				Schema: "public", Name: "split", IsFunction: true,
				ArgTypes: []string{"text", "text", "text"},
				ArgModes: []string{"i", "o", "o"},
			},
			args:       []session.Argument{{Value: "a,b"}},
			wantSQL:    `SELECT * FROM "public"."split"($1::text::text)`,
			wantParams: []any{"a,b"},
		},
		{
			name: "default then named",
			target: session.DirectTarget{
				Schema: "public", Name: "page", IsFunction: true,
				ArgTypes:      []string{"integer", "integer", "text"},
				ArgNames:      []string{"lim", "off", "q"},
				DefaultValues: []string{"", "0", "''::text"},
			},
			args:       []session.Argument{{Value: "10"}, {UseDefault: true}, {Value: "x"}},
			wantSQL:    `SELECT * FROM "public"."page"($1::text::integer, "q" => $2::text::text)`,
			wantParams: []any{"10", "x"},
		},
		{
			name: "missing trailing arguments use defaults",
			target: session.DirectTarget{
				Schema: "public", Name: "page", IsFunction: true,
				ArgTypes:      []string{"integer", "integer"},
				DefaultValues: []string{"", "0"},
			},
			args:       []session.Argument{{Value: "10"}},
			wantSQL:    `SELECT * FROM "public"."page"($1::text::integer)`,
			wantParams: []any{"10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := BuildCall(&tt.target, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestBuildCall_Errors(t *testing.T) {
	noDefault := session.DirectTarget{Schema: "public", Name: "f", IsFunction: true, ArgTypes: []string{"integer"}}
	_, _, err := BuildCall(&noDefault, []session.Argument{{UseDefault: true}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pgerrors.ErrConfiguration))

	unnamed := session.DirectTarget{
		Schema: "public", Name: "f", IsFunction: true,
		ArgTypes:      []string{"integer", "integer"},
		DefaultValues: []string{"1", ""},
	}
	_, _, err = BuildCall(&unnamed, []session.Argument{{UseDefault: true}, {Value: "2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")
}
