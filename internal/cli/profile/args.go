package profile

import (
	"fmt"
	"strings"

	"github.com/bigsql/pgadmin4/internal/session"
)

// Argument tokens accepted by --arg.
const (
	tokenNull    = ":null"
	tokenDefault = ":default"
	prefixExpr   = "expr:"
)

// parseArgument turns one --arg value into a routine argument. A leading
// backslash escapes the special forms.
func parseArgument(raw string) session.Argument {
	switch {
	case raw == tokenNull:
		return session.Argument{IsNull: true}
	case raw == tokenDefault:
		return session.Argument{UseDefault: true}
	case strings.HasPrefix(raw, prefixExpr):
		return session.Argument{Value: strings.TrimPrefix(raw, prefixExpr), IsExpression: true}
	case strings.HasPrefix(raw, `\`):
		return session.Argument{Value: raw[1:]}
	default:
		return session.Argument{Value: raw}
	}
}

func parseArguments(raw []string) []session.Argument {
	out := make([]session.Argument, len(raw))
	for i, r := range raw {
		out[i] = parseArgument(r)
	}
	return out
}

func describeArgument(a session.Argument) string {
	switch {
	case a.IsNull:
		return "NULL"
	case a.UseDefault:
		return "DEFAULT"
	case a.IsExpression:
		return fmt.Sprintf("(%s)", a.Value)
	default:
		return fmt.Sprintf("%q", a.Value)
	}
}
