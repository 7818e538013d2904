// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層と修復ワーカーから利用する。
type MetricsCollector interface {
	RecordFollow()
	RecordUnfollow()
	RecordEdgeRepaired()
	RecordMembershipChange(action string)
	RecordPostCreated()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	followTotal       prometheus.Counter
	unfollowTotal     prometheus.Counter
	edgeRepairedTotal prometheus.Counter
	membershipChanges *prometheus.CounterVec
	postsCreated      prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		followTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mura_follow_total",
			Help: "フォローエッジ作成の合計数",
		}),
		unfollowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mura_unfollow_total",
			Help: "フォローエッジ削除の合計数",
		}),
		edgeRepairedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mura_edge_repaired_total",
			Help: "修復ワーカーが補完した片側エッジの合計数",
		}),
		membershipChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mura_membership_changes_total",
			Help: "グループメンバーシップ変更の合計数（操作別）",
		}, []string{"action"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mura_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mura_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.followTotal,
		c.unfollowTotal,
		c.edgeRepairedTotal,
		c.membershipChanges,
		c.postsCreated,
		c.httpStatus,
	)

	return c
}

// RecordFollow はフォローエッジ作成を記録する。
func (c *Collector) RecordFollow() {
	c.followTotal.Inc()
}

// RecordUnfollow はフォローエッジ削除を記録する。
func (c *Collector) RecordUnfollow() {
	c.unfollowTotal.Inc()
}

// RecordEdgeRepaired は片側エッジの修復を記録する。
func (c *Collector) RecordEdgeRepaired() {
	c.edgeRepairedTotal.Inc()
}

// RecordMembershipChange はメンバーシップ変更を操作別に記録する。
// actionはjoin, leave, promote, demoteのいずれか。
func (c *Collector) RecordMembershipChange(action string) {
	c.membershipChanges.WithLabelValues(action).Inc()
}

// RecordPostCreated は投稿の作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
