package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var replaysTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tenderdesk_idempotent_replays_total",
	Help: "Responses served from a stored idempotency record",
})
