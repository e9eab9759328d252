package metrics

// ============================================================================
// Metrics 測試檔案
// 職責：驗證指標註冊與各記錄方法的計數行為
// ============================================================================

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCollectorRegistersAllMetrics 測試所有指標成功註冊
func TestCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWith(reg)
	require.NotNil(t, c)

	c.RecordRequest()
	c.RecordToolCall("run_drc", 0.5)
	c.RecordToolError("run_drc")
	c.RecordRouteJobStarted()
	c.SetTasksKnown(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["mcp_requests_total"])
	assert.True(t, names["mcp_tool_calls_total"])
	assert.True(t, names["mcp_tool_errors_total"])
	assert.True(t, names["mcp_tool_latency_seconds"])
	assert.True(t, names["mcp_route_jobs_started_total"])
	assert.True(t, names["mcp_tasks_known"])
}

// TestCollectorCounts 測試計數值
func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWith(reg)

	c.RecordRequest()
	c.RecordRequest()
	c.RecordToolCall("auto_route", 0.1)
	c.RecordRouteJobStarted()
	c.SetTasksKnown(7)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.requests))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.toolCalls.WithLabelValues("auto_route")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.routeJobsStart))
	assert.Equal(t, float64(7), testutil.ToFloat64(c.tasksKnown))
}
