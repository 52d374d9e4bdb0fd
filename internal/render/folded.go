package render

import (
	"fmt"
	"io"

	"github.com/bigsql/pgadmin4/internal/report"
)

// Folded writes the call graph as named folded stacks, the input format of
// flamegraph.pl and speedscope.
type Folded struct{}

func (Folded) Format() string    { return FormatFolded }
func (Folded) Extension() string { return "folded" }

func (Folded) Render(w io.Writer, rep *report.Report, _ Meta) error {
	if _, err := io.WriteString(w, report.FoldStacksNamed(rep.CallGraph, rep.Names())); err != nil {
		return fmt.Errorf("failed to write folded stacks: %w", err)
	}
	return nil
}
