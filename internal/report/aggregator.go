package report

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// Aggregator builds Reports from a SampleReader. It never retries; a
// DataSource error may be retried by the caller.
type Aggregator struct {
	reader SampleReader
	topK   int
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator. topK must be at least 1.
func NewAggregator(reader SampleReader, topK int, logger zerolog.Logger) (*Aggregator, error) {
	if topK < 1 {
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, "report.NewAggregator",
			"value for top_k is %d, it must be greater than or equal to 1", topK)
	}
	return &Aggregator{
		reader: reader,
		topK:   topK,
		logger: logger.With().Str("component", "aggregator").Logger(),
	}, nil
}

// TopK returns the configured candidate limit.
func (a *Aggregator) TopK() int {
	return a.topK
}

// Build aggregates the samples of scope. When oids is empty the top_k
// routines by self time are selected.
func (a *Aggregator) Build(ctx context.Context, scope Scope, oids []uint32) (*Report, error) {
	const op = "report.Build"

	if !scope.Valid() {
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, op, "unknown data scope %q", scope)
	}
	logger := a.logger.With().Str("scope", string(scope)).Logger()

	candidates, selection, err := a.selectCandidates(ctx, scope, oids)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("candidates", len(candidates)).
		Str("mode", string(selection.Mode)).
		Bool("found_more", selection.FoundMoreFunctions).
		Msg("Selected routines")

	refs, err := a.reader.Metadata(ctx, candidates)
	if err != nil {
		return nil, dataSource(op, "metadata", err)
	}
	functionList := sortFunctionList(refs)

	stats, err := a.reader.LineStats(ctx, scope)
	if err != nil {
		return nil, dataSource(op, "line stats", err)
	}
	byOID := groupLineStats(stats)

	defs := make([]FunctionDef, 0, len(candidates))
	for _, oid := range candidates {
		def, err := a.buildDef(ctx, scope, oid, byOID[oid])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	edges, err := a.reader.CallGraph(ctx, scope)
	if err != nil {
		return nil, dataSource(op, "call graph", err)
	}

	var overflow OverflowFlags
	if scope == ScopeShared {
		overflow, err = a.reader.OverflowFlags(ctx)
		if err != nil {
			return nil, dataSource(op, "overflow flags", err)
		}
		if overflow.Any() {
			logger.Warn().
				Bool("callgraph", overflow.CallGraph).
				Bool("functions", overflow.Functions).
				Bool("lines", overflow.Lines).
				Msg("Shared profiling buffers overflowed, report may be incomplete")
		}
	}

	return &Report{
		Scope:        scope,
		FunctionList: functionList,
		FunctionDefs: defs,
		CallGraph:    edges,
		FlameData:    FoldStacks(edges),
		Overflow:     overflow,
		Selection:    selection,
	}, nil
}

func (a *Aggregator) selectCandidates(ctx context.Context, scope Scope, oids []uint32) ([]uint32, Selection, error) {
	if len(oids) > 0 {
		return append([]uint32(nil), oids...), Selection{Mode: UserSpecified}, nil
	}

	ranked, err := a.reader.TopSelfTime(ctx, scope, a.topK+1)
	if err != nil {
		return nil, Selection{}, dataSource("report.Build", "top routines", err)
	}

	sel := Selection{Mode: TopKBySelfTime}
	if len(ranked) > a.topK {
		ranked = ranked[:a.topK]
		sel.FoundMoreFunctions = true
	}
	if len(ranked) == 0 {
		return nil, Selection{}, pgerrors.E(pgerrors.KindNoProfilingData, "report.Build", nil)
	}

	out := make([]uint32, len(ranked))
	for i, r := range ranked {
		out[i] = r.OID
	}
	return out, sel, nil
}

// buildDef assembles one routine's section. Its total time is the first line
// row's total, which the engine repeats per line as the routine-wide value.
func (a *Aggregator) buildDef(ctx context.Context, scope Scope, oid uint32, lines []LineStat) (FunctionDef, error) {
	info, err := a.reader.Routine(ctx, scope, oid)
	if err != nil {
		return FunctionDef{}, dataSource("report.Build", "routine definition", err)
	}
	if info == nil || len(lines) == 0 {
		return FunctionDef{}, pgerrors.RoutineNotFound("report.Build", oid)
	}

	def := FunctionDef{
		OID:        oid,
		Schema:     info.Schema,
		Name:       info.Name,
		Signature:  info.Arguments,
		ResultType: info.ResultType,
		SelfTime:   info.SelfTime,
		TotalTime:  lines[0].TotalTime,
		Lines:      make([]SourceLine, len(lines)),
	}
	for i, l := range lines {
		def.Lines[i] = SourceLine{
			LineNumber:  l.LineNumber,
			Source:      l.Source,
			ExecCount:   l.ExecCount,
			TotalTime:   l.TotalTime,
			LongestTime: l.LongestTime,
		}
	}
	return def, nil
}

// groupLineStats buckets rows by routine, each bucket ordered by line number.
func groupLineStats(stats []LineStat) map[uint32][]LineStat {
	grouped := make(map[uint32][]LineStat)
	for _, s := range stats {
		grouped[s.OID] = append(grouped[s.OID], s)
	}
	for oid := range grouped {
		rows := grouped[oid]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].LineNumber < rows[j].LineNumber
		})
	}
	return grouped
}

// sortFunctionList orders refs case-insensitively by schema then name, with
// the oid as a final tiebreak.
func sortFunctionList(refs []FunctionRef) []FunctionRef {
	out := append([]FunctionRef(nil), refs...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := strings.Compare(strings.ToLower(out[i].Schema), strings.ToLower(out[j].Schema)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)); c != 0 {
			return c < 0
		}
		return out[i].OID < out[j].OID
	})
	return out
}

// dataSource classifies a reader failure as retryable unless it is already
// classified or the caller gave up.
func dataSource(op, what string, err error) error {
	var classified *pgerrors.Error
	if stderrors.As(err, &classified) {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &pgerrors.Error{Kind: pgerrors.KindDataSource, Op: op, Msg: "failed to read " + what, Err: err}
}
