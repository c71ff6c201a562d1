// Package metrics defines the prometheus metrics exported by the server.
//
// When adding new operations or metrics, these are useful things to track:
//   - things entering or leaving the system: connects, commands, lines.
//   - the success or error status of any of the above.
//   - the distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectCount counts accepted TCP connections.
	ConnectCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ircd_connect_total",
			Help: "Total number of accepted connections.",
		},
	)

	// DisconnectCount counts disconnects, labeled by reason (quit, kill,
	// ping timeout, flood, sendq/recvq exceeded, xline, error).
	DisconnectCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_disconnect_total",
			Help: "Total number of disconnects, by reason.",
		}, []string{"reason"})

	// CommandCount counts dispatched commands, labeled by command name.
	CommandCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_command_total",
			Help: "Total number of commands dispatched, by command name.",
		}, []string{"command"})

	// FloodKillCount counts connections killed for excess flood.
	FloodKillCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ircd_flood_kill_total",
			Help: "Total number of connections disconnected for excess flood.",
		},
	)

	// XlineHitCount counts X-line matches that caused a disconnect, labeled
	// by kind (K, G, Z, Q).
	XlineHitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_xline_hit_total",
			Help: "Total number of X-line matches causing disconnect, by kind.",
		}, []string{"kind"})

	// XlineExpireCount counts temporary X-line entries that expired.
	XlineExpireCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ircd_xline_expire_total",
			Help: "Total number of temporary X-line entries that expired, by kind.",
		}, []string{"kind"})

	// RegistrationLatency tracks time from accept to FULLY_REGISTERED.
	RegistrationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ircd_registration_latency_seconds",
			Help:    "Latency between accept and full registration.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
	)

	// SendQHighWater tracks the sendQ size observed after each queued line.
	SendQHighWater = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ircd_sendq_bytes_histogram",
			Help:    "Distribution of sendQ size after each queued line.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 12),
		},
	)

	// RecvQHighWater tracks the largest recvQ size observed per read.
	RecvQHighWater = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ircd_recvq_bytes_histogram",
			Help:    "Distribution of recvQ size at read time.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 12),
		},
	)

	// LoopIterationLatency tracks the wall time of one event loop iteration.
	LoopIterationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ircd_loop_iteration_latency_seconds",
			Help:    "Latency of a single event loop iteration.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
	)

	// DNSLatency tracks the time spent resolving a reverse DNS lookup.
	DNSLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ircd_dns_latency_seconds",
			Help:    "Latency of reverse DNS resolution.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChannelCount tracks the current number of live channels.
	ChannelCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_channel_count",
			Help: "Current number of channels in the channel index.",
		},
	)

	// UserCount tracks the current number of users holding a nick in the
	// Nick Index, including ones still registering.
	UserCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ircd_user_count",
			Help: "Current number of users holding a nick, including ones still registering.",
		},
	)
)

// init logs once so operators can confirm the metrics package was loaded and
// its collectors registered.
func init() {
	log.Println("Prometheus metrics in ircd.metrics are registered.")
}
