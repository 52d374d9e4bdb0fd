package duckdb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InterpolateQuery renders query with args substituted for its ? placeholders
// so that trace logs can be pasted into the duckdb shell. Placeholders inside
// quoted literals are left alone, as are placeholders beyond len(args).
// Whitespace runs collapse to a single space.
func InterpolateQuery(query string, args []any) string {
	var sb strings.Builder
	sb.Grow(len(query))

	next := 0
	inQuote := false
	lastSpace := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote && next < len(args):
			sb.WriteString(literal(args[next]))
			next++
			lastSpace = false
			continue
		case !inQuote && (r == '\n' || r == '\t' || r == ' '):
			if lastSpace {
				continue
			}
			sb.WriteByte(' ')
			lastSpace = true
			continue
		}
		sb.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(sb.String())
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case []byte:
		return quote(string(val))
	case bool:
		return strconv.FormatBool(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		// Round(0) strips the monotonic reading.
		return quote(val.Round(0).UTC().Format(time.RFC3339Nano))
	case *string:
		if val == nil {
			return "NULL"
		}
		return quote(*val)
	case fmt.Stringer:
		return quote(val.String())
	default:
		return quote(fmt.Sprintf("%v", val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
