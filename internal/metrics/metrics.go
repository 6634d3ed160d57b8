// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、認可ポリシー、リソースサービス、HTTPミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordAuthzDenial(reason string)
	RecordConflict(entity string)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordLockoutsCleared(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	authzDenials    *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	lockoutsCleared prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		authzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_authz_denials_total",
			Help: "理由別の認可拒否数",
		}, []string{"reason"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_concurrency_conflicts_total",
			Help: "エンティティ別の楽観的排他制御の競合数",
		}, []string{"entity"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "ルートとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		lockoutsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_lockouts_cleared_total",
			Help: "期限切れで解除されたアカウントロックアウトの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.authzDenials,
		c.conflicts,
		c.httpRequests,
		c.httpDuration,
		c.lockoutsCleared,
	)

	return c
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordAuthzDenial は認可拒否を記録する。
func (c *Collector) RecordAuthzDenial(reason string) {
	c.authzDenials.WithLabelValues(reason).Inc()
}

// RecordConflict は更新競合を記録する。
func (c *Collector) RecordConflict(entity string) {
	c.conflicts.WithLabelValues(entity).Inc()
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターン（例: /projects/{id}）を渡し、ラベルの種類数を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLockoutsCleared は解除したロックアウト件数を記録する。
func (c *Collector) RecordLockoutsCleared(count int64) {
	c.lockoutsCleared.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
