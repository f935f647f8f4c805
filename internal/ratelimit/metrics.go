package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tenderdesk_rate_limited_total",
	Help: "Requests denied by the rate limiter, by endpoint class",
}, []string{"class"})
