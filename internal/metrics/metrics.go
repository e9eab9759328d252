// ============================================================================
// kicad-mcp Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集並暴露伺服器運行指標，支持 Prometheus 抓取
//
// 指標分類:
//
//   1. 計數器 (Counter):
//      - mcp_requests_total: 協定請求總數
//      - mcp_tool_calls_total{tool}: 各工具呼叫次數
//      - mcp_tool_errors_total{tool}: 各工具失敗次數
//      - mcp_route_jobs_started_total: 已啟動的佈線任務數
//
//   2. 性能指標 (Histogram):
//      - mcp_tool_latency_seconds: 工具執行延遲分佈
//
//   3. 狀態指標 (Gauge):
//      - mcp_tasks_known: 最近一次列舉時的已知任務數
//
// HTTP 端點:
//   通過 /metrics 暴露，由 Prometheus 定期抓取；協定本身走 stdio，
//   指標伺服器是唯一的網路監聽端，可於設定檔停用。
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector Prometheus 指標收集器
type Collector struct {
	requests       prometheus.Counter
	toolCalls      *prometheus.CounterVec
	toolErrors     *prometheus.CounterVec
	toolLatency    prometheus.Histogram
	routeJobsStart prometheus.Counter
	tasksKnown     prometheus.Gauge
}

// NewCollector 創建指標收集器並註冊到預設 registry
func NewCollector() *Collector {
	return NewCollectorWith(prometheus.DefaultRegisterer)
}

// NewCollectorWith 創建指標收集器並註冊到指定 registry（測試用）
func NewCollectorWith(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_requests_total",
			Help: "Total number of protocol requests handled",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "Total number of tool invocations",
		}, []string{"tool"}),
		toolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_tool_errors_total",
			Help: "Total number of failed tool invocations",
		}, []string{"tool"}),
		toolLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcp_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		routeJobsStart: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_route_jobs_started_total",
			Help: "Total number of detached routing jobs launched",
		}),
		tasksKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mcp_tasks_known",
			Help: "Number of known tasks at the last ledger enumeration",
		}),
	}

	reg.MustRegister(c.requests)
	reg.MustRegister(c.toolCalls)
	reg.MustRegister(c.toolErrors)
	reg.MustRegister(c.toolLatency)
	reg.MustRegister(c.routeJobsStart)
	reg.MustRegister(c.tasksKnown)

	return c
}

// RecordRequest 記錄一個協定請求
func (c *Collector) RecordRequest() {
	c.requests.Inc()
}

// RecordToolCall 記錄工具呼叫與延遲
func (c *Collector) RecordToolCall(tool string, latencySeconds float64) {
	c.toolCalls.WithLabelValues(tool).Inc()
	c.toolLatency.Observe(latencySeconds)
}

// RecordToolError 記錄工具失敗
func (c *Collector) RecordToolError(tool string) {
	c.toolErrors.WithLabelValues(tool).Inc()
}

// RecordRouteJobStarted 記錄一個佈線任務啟動
func (c *Collector) RecordRouteJobStarted() {
	c.routeJobsStart.Inc()
}

// SetTasksKnown 更新已知任務數
func (c *Collector) SetTasksKnown(n int) {
	c.tasksKnown.Set(float64(n))
}

// StartServer 啟動 Prometheus metrics HTTP 伺服器
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
