// Package render writes a Report as a stored artifact.
package render

import (
	"io"
	"time"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/session"
)

// Format names.
const (
	FormatHTML   = "html"
	FormatFolded = "folded"
	FormatPprof  = "pprof"
)

// Meta is the presentation context of a report.
type Meta struct {
	Config       session.ReportConfig
	DatabaseName string
	IsDirect     bool
	GeneratedAt  time.Time
}

// Renderer encodes a report into one artifact format.
type Renderer interface {
	// Format is the configuration name of the format.
	Format() string
	// Extension is the artifact file extension without the dot.
	Extension() string
	Render(w io.Writer, rep *report.Report, meta Meta) error
}

// New returns the renderer for format.
func New(format string) (Renderer, error) {
	switch format {
	case FormatHTML, "":
		return HTML{}, nil
	case FormatFolded:
		return Folded{}, nil
	case FormatPprof:
		return Pprof{}, nil
	default:
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, "render.New",
			"unknown report format %q (expected html, folded or pprof)", format)
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatHTML, FormatFolded, FormatPprof}
}
