// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tintbot_chat_turns_total",
		Help: "Chat turns handled, by extractor backend.",
	}, []string{"backend"})

	dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tintbot_dispatch_total",
		Help: "Channel fan-out outcomes, by channel and status.",
	}, []string{"channel", "status"})

	claims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tintbot_claims_total",
		Help: "Lead claim attempts, by outcome (won or lost).",
	}, []string{"outcome"})
)

func RecordChatTurn(backend string) {
	chatTurns.WithLabelValues(backend).Inc()
}

func RecordDispatch(channel, status string) {
	dispatches.WithLabelValues(channel, status).Inc()
}

func RecordClaim(won bool) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	claims.WithLabelValues(outcome).Inc()
}
