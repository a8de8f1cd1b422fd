package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	ClicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickbattle_clicks_total",
			Help: "Total number of applied clicks by team",
		},
		[]string{"team"},
	)

	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clickbattle_purchases_total",
			Help: "Total number of successful upgrade purchases",
		},
		[]string{"upgrade"},
	)

	StreamSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clickbattle_stream_subscribers",
			Help: "Currently connected snapshot stream subscribers",
		},
		[]string{"stream"},
	)

	QuarantinedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clickbattle_quarantined_keys_total",
			Help: "Membership keys halted after a consistency violation",
		},
	)
)

// NewRegistry собирает реестр с метриками приложения и рантайма.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ClicksTotal,
		PurchasesTotal,
		StreamSubscribers,
		QuarantinedKeys,
	)
	return registry
}
