// Package metrics 提供 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discord 会话指标
var (
	// 会话状态：0 disconnected, 1 connecting, 2 connected
	SessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_session_state",
		Help: "Discord RPC session state (0 disconnected, 1 connecting, 2 connected)",
	})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_login_attempts_total",
		Help: "Discord RPC login attempts by result",
	}, []string{"result"}) // success, failure

	// 推送结果：sent, failed, skipped（未连接）
	Pushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_pushes_total",
		Help: "SET_ACTIVITY pushes by result",
	}, []string{"result"})

	PushesOutOfOrder = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_push_out_of_order_total",
		Help: "Pushes that completed after a newer push had already completed",
	})

	PushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "presence_push_duration_seconds",
		Help:    "SET_ACTIVITY round-trip duration",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_notifications_total",
		Help: "Error notifications by delivery result",
	}, []string{"result"}) // delivered, dropped
)

// 导航 / 资料解析指标
var (
	NavigationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_navigation_events_total",
		Help: "menuChange events by root menu",
	}, []string{"root"})

	NavigationUnmapped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_navigation_unmapped_total",
		Help: "menuChange events that produced no presence",
	})

	ProfileParses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_profile_parses_total",
		Help: "Profile text parse attempts by result",
	}, []string{"result"}) // matched, miss
)

// 宿主通道指标
var (
	HostConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_host_connections",
		Help: "Active host channel connections",
	})

	HostFramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_host_frames_received_total",
		Help: "Host channel frames received by type",
	}, []string{"msg_type"})

	HostFramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_host_frames_sent_total",
		Help: "Host channel frames sent by type",
	}, []string{"msg_type"})

	HostConnectionCloseReason = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_host_connection_close_total",
		Help: "Host connection close count by reason",
	}, []string{"reason"})

	HostEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_host_events_dropped_total",
		Help: "Navigation events dropped because the event queue was full",
	})
)
