package mail

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_dispatch_total",
			Help: "Transactional mails handed to the sender, by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: sent | failed | render_failed
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_send_duration_seconds",
			Help:    "Time spent in Sender.Send",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"kind"},
	)
)
