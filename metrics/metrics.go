package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizeRequestsTotal counts initiator requests by outcome.
	AuthorizeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiktok_link_authorize_requests_total",
		Help: "The total number of link initiation requests",
	}, []string{"outcome"})

	// CallbacksTotal counts OAuth callbacks by terminal state.
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiktok_link_callbacks_total",
		Help: "The total number of OAuth callbacks by outcome",
	}, []string{"outcome"})

	// VideoSyncTotal counts best-effort video sync runs.
	VideoSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiktok_link_video_sync_total",
		Help: "The total number of video sync attempts by outcome",
	}, []string{"outcome"})

	// MetricsSnapshotsTotal counts per-account metrics snapshot writes.
	MetricsSnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiktok_link_metrics_snapshots_total",
		Help: "The total number of video metrics snapshot writes by outcome",
	}, []string{"outcome"})
)
