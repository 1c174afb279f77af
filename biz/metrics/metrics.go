// Package metrics defines Prometheus metrics for proxy requests and MCP tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kruise_proxy_requests_total",
		Help: "Total number of requests sent to the cluster proxy",
	}, []string{"cluster", "verb", "resource", "code"})
	ProxyRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kruise_proxy_request_duration_seconds",
		Help:    "Latency of requests sent to the cluster proxy",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb", "resource"})
	ToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kruise_proxy_tool_calls_total",
		Help: "Total number of MCP tool invocations by result",
	}, []string{"tool", "result"})
)

func init() {
	prometheus.MustRegister(ProxyRequests, ProxyRequestDuration, ToolCalls)
}

// ObserveProxyRequest records one proxy round trip. code is the HTTP status or
// "network"/"decode" for failures without a usable response.
func ObserveProxyRequest(cluster, verb, resource, code string, d time.Duration) {
	ProxyRequests.WithLabelValues(cluster, verb, resource, code).Inc()
	ProxyRequestDuration.WithLabelValues(verb, resource).Observe(d.Seconds())
}

// ObserveToolCall records the outcome of an MCP tool invocation.
func ObserveToolCall(tool string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ToolCalls.WithLabelValues(tool, result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
