// Package report turns raw profiling samples into an immutable Report.
//
// Times are integral microsecond counts as produced by the profiling engine.
// The only unit conversion is DurationSeconds, used for display.
package report

import (
	"fmt"
	"strings"
)

// MicrosPerSecond is the single divisor for deriving seconds from engine times.
const MicrosPerSecond = 1_000_000

// DurationSeconds converts a microsecond total to seconds.
func DurationSeconds(micros int64) float64 {
	return float64(micros) / MicrosPerSecond
}

// Scope selects which sample set to read.
type Scope string

const (
	// ScopeLocal is the data of a single execution in the current backend.
	ScopeLocal Scope = "local"
	// ScopeShared is the global monitoring window in shared memory.
	ScopeShared Scope = "shared"
)

// Valid reports whether s names a known scope.
func (s Scope) Valid() bool {
	return s == ScopeLocal || s == ScopeShared
}

// FunctionRef identifies a routine for display.
type FunctionRef struct {
	OID    uint32 `json:"oid"`
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// QualifiedName returns schema.name.
func (f FunctionRef) QualifiedName() string {
	if f.Schema == "" {
		return f.Name
	}
	return f.Schema + "." + f.Name
}

// SourceLine holds the counters of one source line.
type SourceLine struct {
	LineNumber  int    `json:"line_number"`
	Source      string `json:"source"`
	ExecCount   int64  `json:"exec_count"`
	TotalTime   int64  `json:"total_time"`
	LongestTime int64  `json:"longest_time"`
}

// FunctionDef is the per-routine section of a report.
type FunctionDef struct {
	OID        uint32       `json:"oid"`
	Schema     string       `json:"schema"`
	Name       string       `json:"name"`
	Signature  string       `json:"signature"`
	ResultType string       `json:"result_type"`
	SelfTime   int64        `json:"self_time"`
	TotalTime  int64        `json:"total_time"`
	Lines      []SourceLine `json:"source_lines"`
}

// Ref returns the identifying part of d.
func (d FunctionDef) Ref() FunctionRef {
	return FunctionRef{OID: d.OID, Schema: d.Schema, Name: d.Name}
}

// CallGraphEdge is one observed call stack, outermost routine first.
type CallGraphEdge struct {
	Stack        []uint32 `json:"stack"`
	CallCount    int64    `json:"call_count"`
	TotalTime    int64    `json:"total_time"`
	ChildrenTime int64    `json:"children_time"`
	SelfTime     int64    `json:"self_time"`
}

// Leaf returns the innermost routine of the stack.
func (e CallGraphEdge) Leaf() (uint32, bool) {
	if len(e.Stack) == 0 {
		return 0, false
	}
	return e.Stack[len(e.Stack)-1], true
}

// OverflowFlags report whether the engine's fixed shared buffers filled up
// during collection, making a shared-scope report incomplete.
type OverflowFlags struct {
	CallGraph bool `json:"callgraph_overflow"`
	Functions bool `json:"functions_overflow"`
	Lines     bool `json:"lines_overflow"`
}

// Any reports whether any buffer overflowed.
func (o OverflowFlags) Any() bool {
	return o.CallGraph || o.Functions || o.Lines
}

// SelectionMode records how the report's routines were chosen.
type SelectionMode string

const (
	UserSpecified  SelectionMode = "user_specified"
	TopKBySelfTime SelectionMode = "top_k_by_self_time"
)

// Selection describes candidate selection.
type Selection struct {
	Mode SelectionMode `json:"mode"`
	// FoundMoreFunctions is set when more routines than top_k had samples.
	FoundMoreFunctions bool `json:"found_more_functions"`
}

// Report is the aggregated result of one profiling run. It is not modified
// after Build returns.
type Report struct {
	Scope        Scope           `json:"scope"`
	FunctionList []FunctionRef   `json:"function_list"`
	FunctionDefs []FunctionDef   `json:"function_defs"`
	CallGraph    []CallGraphEdge `json:"call_graph"`
	FlameData    string          `json:"flame_data"`
	Overflow     OverflowFlags   `json:"overflow_flags"`
	Selection    Selection       `json:"selection"`
}

// Names maps oids to qualified names for every routine the report knows.
func (r *Report) Names() map[uint32]string {
	names := make(map[uint32]string, len(r.FunctionList)+len(r.FunctionDefs))
	for _, f := range r.FunctionList {
		names[f.OID] = f.QualifiedName()
	}
	for _, d := range r.FunctionDefs {
		names[d.OID] = d.Ref().QualifiedName()
	}
	return names
}

// Label returns the qualified name of oid, or its number when unknown.
func Label(names map[uint32]string, oid uint32) string {
	if n, ok := names[oid]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("%d", oid)
}

// TotalTime returns the summed total time of the reported routines.
func (r *Report) TotalTime() int64 {
	var total int64
	for _, d := range r.FunctionDefs {
		total += d.TotalTime
	}
	return total
}

// String summarizes the report for logs.
func (r *Report) String() string {
	oids := make([]string, len(r.FunctionDefs))
	for i, d := range r.FunctionDefs {
		oids[i] = fmt.Sprintf("%d", d.OID)
	}
	return fmt.Sprintf("report{scope=%s functions=[%s] edges=%d}", r.Scope, strings.Join(oids, ","), len(r.CallGraph))
}
