package reportstore

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// timestampLayout gives paths minute granularity.
const timestampLayout = "2006-01-02_15-04"

// baseName is the collision-free stem before any suffix: the sanitized
// report name and the minute of ts.
func baseName(name string, ts time.Time) string {
	return sanitizeName(name) + "@" + ts.Format(timestampLayout)
}

// fileName joins the stem, the disambiguation suffix for attempt n and the
// extension.
func fileName(base string, n int, ext string) string {
	return base + suffix(n) + "." + ext
}

// suffix returns "" for attempt 0 and then (a)..(z), (aa), (ab), ... in
// bijective base 26, so every attempt maps to a distinct suffix.
func suffix(n int) string {
	if n <= 0 {
		return ""
	}
	var letters []byte
	for n > 0 {
		n--
		letters = append(letters, byte('a'+n%26))
		n /= 26
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return "(" + string(letters) + ")"
}

// sanitizeName keeps letters, digits, '-', '_' and '.', replaces anything
// else with '_' and never yields an empty or hidden file name.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "report"
	}
	return s
}

// artifactPattern matches file names produced by fileName.
var artifactPattern = regexp.MustCompile(`^.+@\d{4}-\d{2}-\d{2}_\d{2}-\d{2}(\([a-z]+\))?\.(html|folded|pb\.gz)$`)

func isArtifactName(name string) bool {
	return artifactPattern.MatchString(name)
}
