package monitoring

import (
	"signalhub/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsSink over Prometheus.
type Collector struct {
	connectionsActive prometheus.Gauge
	connectsTotal     prometheus.Counter
	supersededTotal   prometheus.Counter

	presenceBroadcastsTotal prometheus.Counter
	broadcastRecipients     prometheus.Histogram

	callsActive         prometheus.Gauge
	callsInitiatedTotal *prometheus.CounterVec
	callOutcomesTotal   *prometheus.CounterVec
	ringDurationSeconds prometheus.Histogram

	roomsActive       prometheus.Gauge
	roomsCreatedTotal prometheus.Counter

	relayedTotal *prometheus.CounterVec

	lanScanMatches prometheus.Histogram

	messagesTotal *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_connections_active",
			Help: "Number of registered live connections",
		}),

		connectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_connects_total",
			Help: "Total number of successful connects",
		}),

		supersededTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_connections_superseded_total",
			Help: "Total number of connections replaced by a reconnect under the same identity",
		}),

		presenceBroadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_presence_broadcasts_total",
			Help: "Total number of presence status broadcasts",
		}),

		broadcastRecipients: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalhub_presence_broadcast_recipients",
			Help:    "Recipients per presence broadcast",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		callsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_calls_active",
			Help: "Number of non-terminal one-to-one calls",
		}),

		callsInitiatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_calls_initiated_total",
			Help: "Total calls initiated",
		}, []string{"media"}),

		callOutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_call_outcomes_total",
			Help: "Terminal call outcomes",
		}, []string{"outcome"}),

		ringDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalhub_call_ring_duration_seconds",
			Help:    "Time from call initiation to a terminal outcome",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_rooms_active",
			Help: "Number of active group call rooms",
		}),

		roomsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_rooms_created_total",
			Help: "Total group call rooms created",
		}),

		relayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_signals_relayed_total",
			Help: "Signaling messages relayed, by kind and delivery result",
		}, []string{"kind", "delivered"}),

		lanScanMatches: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalhub_lan_scan_matches",
			Help:    "Matches returned per LAN scan",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		}),

		messagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_messages_total",
			Help: "Inbound transport messages by type",
		}, []string{"type"}),
	}
}

func (c *Collector) RecordConnect(superseded bool) {
	c.connectsTotal.Inc()
	if superseded {
		c.supersededTotal.Inc()
	} else {
		c.connectionsActive.Inc()
	}
}

func (c *Collector) RecordDisconnect() {
	c.connectionsActive.Dec()
}

func (c *Collector) RecordPresenceBroadcast(recipients int) {
	c.presenceBroadcastsTotal.Inc()
	c.broadcastRecipients.Observe(float64(recipients))
}

func (c *Collector) RecordCallInitiated(isVideo bool) {
	media := "audio"
	if isVideo {
		media = "video"
	}
	c.callsInitiatedTotal.WithLabelValues(media).Inc()
	c.callsActive.Inc()
}

func (c *Collector) RecordCallOutcome(outcome domain.CallState, ringSeconds float64) {
	c.callOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	c.ringDurationSeconds.Observe(ringSeconds)
	c.callsActive.Dec()
}

func (c *Collector) RecordRoomCreated() {
	c.roomsCreatedTotal.Inc()
	c.roomsActive.Inc()
}

func (c *Collector) RecordRoomDestroyed() {
	c.roomsActive.Dec()
}

func (c *Collector) RecordRelay(kind domain.SignalKind, delivered bool) {
	result := "false"
	if delivered {
		result = "true"
	}
	c.relayedTotal.WithLabelValues(string(kind), result).Inc()
}

func (c *Collector) RecordLanScan(matches int) {
	c.lanScanMatches.Observe(float64(matches))
}

func (c *Collector) RecordMessage(msgType string) {
	c.messagesTotal.WithLabelValues(msgType).Inc()
}
