package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/bigsql/pgadmin4/internal/report"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"micros": formatMicros,
}).Parse(htmlSource))

const (
	defaultSVGWidth = 1200
	defaultTabStop  = 8
	frameHeight     = 18
	minFrameWidth   = 0.5
)

// HTML writes a self-contained page with the routine table, annotated
// source, the call tree and an icicle graph of the call stacks.
type HTML struct{}

func (HTML) Format() string    { return FormatHTML }
func (HTML) Extension() string { return "html" }

func (HTML) Render(w io.Writer, rep *report.Report, meta Meta) error {
	if err := htmlTemplate.Execute(w, newPage(rep, meta)); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return nil
}

type page struct {
	Title        string
	Description  string
	Database     string
	Kind         string
	GeneratedAt  string
	TableWidth   string
	Scope        report.Scope
	Overflow     report.OverflowFlags
	FoundMore    bool
	TotalTime    int64
	Functions    []pageFunction
	Tree         []treeRow
	Frames       []svgFrame
	SVGWidth     int
	SVGHeight    int
	FoldedStacks string
}

type pageFunction struct {
	Anchor     string
	Name       string
	Signature  string
	ResultType string
	SelfTime   int64
	TotalTime  int64
	Lines      []pageLine
}

type pageLine struct {
	Number      int
	Source      string
	ExecCount   int64
	TotalTime   int64
	LongestTime int64
	Hot         bool
}

type treeRow struct {
	Indent    int
	Label     string
	CallCount int64
	TotalTime int64
	SelfTime  int64
	Hot       bool
}

type svgFrame struct {
	X, Y, Width float64
	Label       string
	Title       string
	Hot         bool
}

func newPage(rep *report.Report, meta Meta) page {
	cfg := meta.Config
	tabStop := atoiOr(cfg.TabStop, defaultTabStop)
	svgWidth := atoiOr(cfg.SVGWidth, defaultSVGWidth)

	p := page{
		Title:        cfg.Title,
		Description:  cfg.Description,
		Database:     meta.DatabaseName,
		Kind:         "indirect",
		TableWidth:   cfg.TableWidth,
		Scope:        rep.Scope,
		Overflow:     rep.Overflow,
		FoundMore:    rep.Selection.FoundMoreFunctions,
		TotalTime:    rep.TotalTime(),
		SVGWidth:     svgWidth,
		FoldedStacks: report.FoldStacksNamed(rep.CallGraph, rep.Names()),
	}
	if meta.IsDirect {
		p.Kind = "direct"
	}
	if !meta.GeneratedAt.IsZero() {
		p.GeneratedAt = meta.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	}
	if p.Title == "" {
		p.Title = cfg.Name
	}

	for _, d := range rep.FunctionDefs {
		p.Functions = append(p.Functions, newPageFunction(d, tabStop))
	}

	tree := report.BuildCallTree(rep.CallGraph, rep.Names())
	tree.Walk(func(n *report.CallNode, depth int) {
		p.Tree = append(p.Tree, treeRow{
			Indent:    depth,
			Label:     n.Label,
			CallCount: n.CallCount,
			TotalTime: n.TotalTime,
			SelfTime:  n.SelfTime,
			Hot:       n.Hot,
		})
	})

	p.Frames, p.SVGHeight = layoutFrames(tree, float64(svgWidth))
	return p
}

func newPageFunction(d report.FunctionDef, tabStop int) pageFunction {
	f := pageFunction{
		Anchor:     fmt.Sprintf("f%d", d.OID),
		Name:       d.Ref().QualifiedName(),
		Signature:  d.Signature,
		ResultType: d.ResultType,
		SelfTime:   d.SelfTime,
		TotalTime:  d.TotalTime,
	}

	// Line 0 carries the routine total and is not source.
	var longest int64
	for _, l := range d.Lines {
		if l.LineNumber > 0 && l.TotalTime > longest {
			longest = l.TotalTime
		}
	}
	for _, l := range d.Lines {
		if l.LineNumber == 0 {
			continue
		}
		f.Lines = append(f.Lines, pageLine{
			Number:      l.LineNumber,
			Source:      expandTabs(l.Source, tabStop),
			ExecCount:   l.ExecCount,
			TotalTime:   l.TotalTime,
			LongestTime: l.LongestTime,
			Hot:         longest > 0 && l.TotalTime == longest,
		})
	}
	return f
}

// layoutFrames places call tree nodes as an icicle graph: roots on top,
// each child spanning its share of the parent's total time.
func layoutFrames(root *report.CallNode, width float64) ([]svgFrame, int) {
	if root == nil || root.TotalTime <= 0 {
		return nil, 0
	}

	var frames []svgFrame
	maxDepth := 0
	var place func(n *report.CallNode, x, w float64, depth int)
	place = func(n *report.CallNode, x, w float64, depth int) {
		if w < minFrameWidth {
			return
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		frames = append(frames, svgFrame{
			X:     x,
			Y:     float64(depth * frameHeight),
			Width: w,
			Label: n.Label,
			Title: fmt.Sprintf("%s (%s, %d calls)", n.Label, formatMicros(n.TotalTime), n.CallCount),
			Hot:   n.Hot,
		})
		if n.TotalTime <= 0 {
			return
		}
		offset := x
		for _, c := range n.Children {
			cw := w * float64(c.TotalTime) / float64(n.TotalTime)
			if offset+cw > x+w {
				cw = x + w - offset
			}
			place(c, offset, cw, depth+1)
			offset += cw
		}
	}
	place(root, 0, width, 0)

	return frames, (maxDepth + 1) * frameHeight
}

// expandTabs replaces tabs with spaces up to the next multiple of tabStop.
func expandTabs(s string, tabStop int) string {
	if tabStop <= 0 || !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := tabStop - col%tabStop
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// formatMicros renders an engine time for humans.
func formatMicros(us int64) string {
	switch {
	case us >= report.MicrosPerSecond:
		return strconv.FormatFloat(report.DurationSeconds(us), 'f', 3, 64) + " s"
	case us >= 1000:
		return strconv.FormatFloat(float64(us)/1000, 'f', 3, 64) + " ms"
	default:
		return strconv.FormatInt(us, 10) + " µs"
	}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
