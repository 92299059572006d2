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
// サービス層およびミドルウェアから利用する。
type MetricsCollector interface {
	RecordProvisionSuccess()
	RecordProvisionFailure(stage string)
	RecordCodeIssued()
	RecordCodeConsumed()
	RecordCodeRejected()
	RecordMailSendLatency(duration time.Duration)
	RecordHTTPRequest(method, path string, statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	provisionSuccess prometheus.Counter
	provisionFail    *prometheus.CounterVec
	codesIssued      prometheus.Counter
	codesConsumed    prometheus.Counter
	codesRejected    prometheus.Counter
	mailLatency      prometheus.Histogram
	httpRequests     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		provisionSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "famauth_provision_success_total",
			Help: "子どもアカウントプロビジョニング成功の合計数",
		}),
		provisionFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "famauth_provision_fail_total",
			Help: "子どもアカウントプロビジョニング失敗の段階別合計数",
		}, []string{"stage"}),
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "famauth_verification_codes_issued_total",
			Help: "発行された確認コードの合計数",
		}),
		codesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "famauth_verification_codes_consumed_total",
			Help: "消費された確認コードの合計数",
		}),
		codesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "famauth_verification_codes_rejected_total",
			Help: "拒否された確認コード照合の合計数",
		}),
		mailLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "famauth_mail_send_latency_seconds",
			Help:    "確認メール送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "famauth_http_requests_total",
			Help: "HTTPリクエストのメソッド・パス・ステータスコード別合計数",
		}, []string{"method", "path", "status_code"}),
	}

	reg.MustRegister(
		c.provisionSuccess,
		c.provisionFail,
		c.codesIssued,
		c.codesConsumed,
		c.codesRejected,
		c.mailLatency,
		c.httpRequests,
	)

	return c
}

// RecordProvisionSuccess はプロビジョニング成功を記録する。
func (c *Collector) RecordProvisionSuccess() {
	c.provisionSuccess.Inc()
}

// RecordProvisionFailure はプロビジョニング失敗を、失敗した段階のラベル付きで記録する。
func (c *Collector) RecordProvisionFailure(stage string) {
	c.provisionFail.WithLabelValues(stage).Inc()
}

// RecordCodeIssued は確認コードの発行を記録する。
func (c *Collector) RecordCodeIssued() {
	c.codesIssued.Inc()
}

// RecordCodeConsumed は確認コードの消費を記録する。
func (c *Collector) RecordCodeConsumed() {
	c.codesConsumed.Inc()
}

// RecordCodeRejected は確認コード照合の拒否を記録する。
func (c *Collector) RecordCodeRejected() {
	c.codesRejected.Inc()
}

// RecordMailSendLatency は確認メール送信のレイテンシを記録する。
func (c *Collector) RecordMailSendLatency(duration time.Duration) {
	c.mailLatency.Observe(duration.Seconds())
}

// RecordHTTPRequest はHTTPリクエストの結果を記録する。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
