// Package metrics provides Prometheus metrics for the studio backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay low-cardinality: no session IDs, event IDs or filenames.

var (
	// ChatMessagesTotal counts visitor messages handled by the intake dialog.
	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_chat_messages_total",
		Help: "Total number of visitor chat messages handled.",
	})

	// ChatFlowsCompletedTotal counts completed intake flows by intent.
	ChatFlowsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_chat_flows_completed_total",
		Help: "Total number of completed appointment flows, by intent.",
	}, []string{"intent"})

	// NotificationsTotal counts notification outcomes by intent and result (sent, failed, dropped).
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_notifications_total",
		Help: "Total number of appointment notifications, by intent and result.",
	}, []string{"intent", "result"})

	// NotificationAttemptsTotal counts individual gateway attempts, including retries.
	NotificationAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_notification_attempts_total",
		Help: "Total number of gateway delivery attempts.",
	})

	// UploadsTotal counts portfolio upload outcomes by result (stored, rejected, error).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_portfolio_uploads_total",
		Help: "Total number of portfolio image uploads, by result.",
	}, []string{"result"})

	// AdminLoginsTotal counts admin login attempts by result (ok, rejected).
	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_admin_logins_total",
		Help: "Total number of admin login attempts, by result.",
	}, []string{"result"})
)
