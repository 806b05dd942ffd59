package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom exports send outcomes as Prometheus series.
type Prom struct {
	sends    *prometheus.CounterVec
	exchange prometheus.Histogram
	delay    *prometheus.GaugeVec
	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg *prometheus.Registry) *Prom {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thingspeak_sends_total",
		Help: "Send attempts by channel and outcome.",
	}, []string{"channel", "result"})
	exchange := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "thingspeak_exchange_seconds",
		Help:    "Wall time of one send, from lookup to parsed reply.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	delay := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "thingspeak_free_api_delay_seconds",
		Help: "Delay the caller must wait before the next send.",
	}, []string{"channel"})

	registerer.MustRegister(sends, exchange, delay)

	return &Prom{sends: sends, exchange: exchange, delay: delay, gatherer: gatherer}
}

// ObserveSend records one send attempt.
func (p *Prom) ObserveSend(channel, result string, elapsed, nextDelay time.Duration) {
	p.sends.WithLabelValues(channel, result).Inc()
	p.exchange.Observe(elapsed.Seconds())
	p.delay.WithLabelValues(channel).Set(nextDelay.Seconds())
}

// Handler serves the registry the collectors live in.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
