package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bigsql/pgadmin4/internal/report"
)

func TestRenderCallTree(t *testing.T) {
	names := map[uint32]string{1: "public.outer", 2: "public.inner"}
	root := report.BuildCallTree([]report.CallGraphEdge{
		{Stack: []uint32{1}, CallCount: 1, TotalTime: 1000, SelfTime: 300},
		{Stack: []uint32{1, 2}, CallCount: 4, TotalTime: 700, SelfTime: 700},
	}, names)

	out := RenderCallTree(root)
	assert.Contains(t, out, "└─ public.outer (1.0ms total, 300µs self, 1 calls, 100.0%)")
	assert.Contains(t, out, "  └─ public.inner (700µs total, 700µs self, 4 calls, 70.0%)")
	assert.Contains(t, out, "Legend:")
}

func TestRenderCallTree_Empty(t *testing.T) {
	assert.Equal(t, "No call graph data available.\n", RenderCallTree(nil))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12µs", FormatDuration(12*time.Microsecond))
	assert.Equal(t, "1.5ms", FormatDuration(1500*time.Microsecond))
	assert.Equal(t, "2.50s", FormatDuration(2500*time.Millisecond))
}
