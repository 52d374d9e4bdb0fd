package helpers

import (
	"fmt"
	"strings"
	"time"

	"github.com/bigsql/pgadmin4/internal/report"
)

// RenderCallTree draws a call tree in ASCII art. Percentages are relative to
// the root's total time.
func RenderCallTree(root *report.CallNode) string {
	if root == nil {
		return "No call graph data available.\n"
	}

	var buf strings.Builder
	renderNode(&buf, root, "", true, root.TotalTime)
	buf.WriteString("\n" + treeLegend)
	return buf.String()
}

func renderNode(buf *strings.Builder, node *report.CallNode, prefix string, isLast bool, total int64) {
	connector := "├─"
	if isLast {
		connector = "└─"
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(node.TotalTime) / float64(total) * 100
	}

	hot := ""
	if node.Hot {
		hot = " ← HOT"
	}

	fmt.Fprintf(buf, "%s%s %s (%s total, %s self, %d calls, %.1f%%)%s\n",
		prefix,
		connector,
		node.Label,
		FormatDuration(micros(node.TotalTime)),
		FormatDuration(micros(node.SelfTime)),
		node.CallCount,
		percentage,
		hot,
	)

	childPrefix := prefix + "│ "
	if isLast {
		childPrefix = prefix + "  "
	}
	for i, child := range node.Children {
		renderNode(buf, child, childPrefix, i == len(node.Children)-1, total)
	}
}

func micros(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

const treeLegend = `Legend:
  ├─ = intermediate frame    │  = continuation
  └─ = last callee           ← HOT = at or above the 95th percentile of call stack time
`
