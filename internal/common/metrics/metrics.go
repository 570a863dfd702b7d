// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_notifications_consumed_total",
			Help: "Total number of notify messages consumed from the live queue",
		},
	)

	NotificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_notifications_delivered_total",
			Help: "Total number of notifications with at least one successful channel",
		},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_notifications_failed_total",
			Help: "Total number of failed notifications by error code",
		},
		[]string{"error_code"},
	)

	RetriesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_retries_scheduled_total",
			Help: "Total number of tier-queue retries scheduled",
		},
		[]string{"tier"},
	)

	RetriesExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_retries_exhausted_total",
			Help: "Total number of messages dropped after the final retry tier",
		},
	)

	ChannelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_channel_attempts_total",
			Help: "Total number of channel dispatch attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	HandleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "delivery_handle_duration_seconds",
			Help: "Duration of notify message handling in seconds",
		},
	)
)
