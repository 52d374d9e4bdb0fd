package plprofiler

import (
	"context"
	"fmt"
	"strings"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// ExtensionName is the library name looked for in shared_preload_libraries.
const ExtensionName = "plprofiler"

// Engine issues the extension's collection controls.
type Engine struct {
	q   Querier
	ext *extension
}

// NewEngine creates an Engine issuing controls on q.
func NewEngine(q Querier) *Engine {
	return &Engine{q: q, ext: newExtension(q)}
}

func (e *Engine) run(ctx context.Context, name string, args ...any) error {
	call, err := e.ext.call(ctx, name, len(args))
	if err != nil {
		return err
	}
	if _, err := e.q.Exec(ctx, "SELECT "+call, args...); err != nil {
		return fmt.Errorf("failed to call %s: %w", name, err)
	}
	return nil
}

// SetEnabledLocal toggles collection in the current backend.
func (e *Engine) SetEnabledLocal(ctx context.Context, on bool) error {
	return e.run(ctx, "pl_profiler_set_enabled_local", on)
}

// SetEnabledGlobal toggles collection in every backend.
func (e *Engine) SetEnabledGlobal(ctx context.Context, on bool) error {
	return e.run(ctx, "pl_profiler_set_enabled_global", on)
}

// SetEnabledPID restricts global collection to one backend. Zero clears it.
func (e *Engine) SetEnabledPID(ctx context.Context, pid int32) error {
	return e.run(ctx, "pl_profiler_set_enabled_pid", pid)
}

// SetCollectInterval sets how often backends flush into shared memory, in
// seconds. Zero flushes at transaction end only.
func (e *Engine) SetCollectInterval(ctx context.Context, seconds int) error {
	return e.run(ctx, "pl_profiler_set_collect_interval", seconds)
}

// ResetLocal discards the current backend's samples.
func (e *Engine) ResetLocal(ctx context.Context) error {
	return e.run(ctx, "pl_profiler_reset_local")
}

// ResetShared discards the global samples.
func (e *Engine) ResetShared(ctx context.Context) error {
	return e.run(ctx, "pl_profiler_reset_shared")
}

// PreloadLibraries returns shared_preload_libraries as a list.
func (e *Engine) PreloadLibraries(ctx context.Context) ([]string, error) {
	var raw string
	if err := e.q.QueryRow(ctx, "SHOW shared_preload_libraries").Scan(&raw); err != nil {
		return nil, fmt.Errorf("could not fetch profiler plugin information: %w", err)
	}
	return ParseLibraries(raw), nil
}

// BackendPID returns the pid of the connection's backend.
func (e *Engine) BackendPID(ctx context.Context) (int32, error) {
	var pid int32
	if err := e.q.QueryRow(ctx, "SELECT pg_backend_pid()").Scan(&pid); err != nil {
		return 0, fmt.Errorf("failed to get backend pid: %w", err)
	}
	return pid, nil
}

// ParseLibraries splits a shared_preload_libraries value.
func ParseLibraries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		lib := strings.Trim(strings.TrimSpace(part), `"'`)
		if lib != "" {
			out = append(out, lib)
		}
	}
	return out
}

func preloaded(libs []string) bool {
	for _, l := range libs {
		if l == ExtensionName || strings.HasSuffix(l, "/"+ExtensionName) {
			return true
		}
	}
	return false
}

// CheckDirect fails when the extension is preloaded, since global collection
// would mix other sessions into a single execution's data.
func CheckDirect(libs []string) error {
	if preloaded(libs) {
		return pgerrors.Errorf(pgerrors.KindConfiguration, "plprofiler.CheckDirect",
			"the profiler plugin is enabled globally. Please remove the plugin from the "+
				"shared_preload_libraries setting in the postgresql.conf file and restart "+
				"the database server for direct profiling")
	}
	return nil
}

// CheckIndirect fails unless the extension is preloaded, since shared
// memory collection needs it.
func CheckIndirect(libs []string) error {
	if !preloaded(libs) {
		return pgerrors.Errorf(pgerrors.KindConfiguration, "plprofiler.CheckIndirect",
			"the profiler plugin is not enabled. Please add the plugin to the "+
				"shared_preload_libraries setting in the postgresql.conf file and restart "+
				"the database server for indirect profiling")
	}
	return nil
}
