package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal HTTP 请求总数（按方法、路由、状态码）。
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration HTTP 请求耗时分布（按路由）。
	HTTPRequestDuration *prometheus.HistogramVec
	// AuthRejectedTotal 访问守卫拒绝的请求数（按原因）。
	AuthRejectedTotal *prometheus.CounterVec
	// OwnershipMissTotal 所有权校验未通过的次数（含不存在与非法 ID，按资源类型）。
	OwnershipMissTotal *prometheus.CounterVec
	// SignupTotal 注册结果计数（按结果）。
	SignupTotal *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics 注册所有 Prometheus 指标。重复调用是安全的。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goaltrail_http_requests_total",
			Help: "Total HTTP requests processed.",
		}, []string{"method", "path", "status"})

		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goaltrail_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"})

		AuthRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goaltrail_auth_rejected_total",
			Help: "Requests rejected by the auth middleware.",
		}, []string{"reason"})

		OwnershipMissTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goaltrail_ownership_miss_total",
			Help: "Ownership resolutions that ended in not-found.",
		}, []string{"resource"})

		SignupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goaltrail_signup_total",
			Help: "Signup attempts by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AuthRejectedTotal,
			OwnershipMissTotal,
			SignupTotal,
		)
	})
}
