package report

import (
	"strconv"
	"strings"
)

// FoldStacks renders edges in folded-stack form, one "oid;oid;... self\n"
// line per edge in input order.
func FoldStacks(edges []CallGraphEdge) string {
	var b strings.Builder
	for _, e := range edges {
		for i, oid := range e.Stack {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(strconv.FormatUint(uint64(oid), 10))
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(e.SelfTime, 10))
		b.WriteByte('\n')
	}
	return b.String()
}

// FoldStacksNamed is FoldStacks with oids replaced by routine names. Frames
// are sanitized so the output stays parseable by flame graph tools.
func FoldStacksNamed(edges []CallGraphEdge, names map[uint32]string) string {
	var b strings.Builder
	for _, e := range edges {
		for i, oid := range e.Stack {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(foldedFrame(Label(names, oid)))
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(e.SelfTime, 10))
		b.WriteByte('\n')
	}
	return b.String()
}

var frameReplacer = strings.NewReplacer(";", ":", " ", "_", "\n", "_")

func foldedFrame(s string) string {
	return frameReplacer.Replace(s)
}
