package a

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var hits = promauto.NewCounter(prometheus.CounterOpts{Name: "hits"}) // want `promauto.NewCounter uses the global Prometheus registry`

func global() {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "c"})
	prometheus.MustRegister(c)                 // want `prometheus.MustRegister uses the global Prometheus registry`
	_ = prometheus.Register(c)                 // want `prometheus.Register uses the global Prometheus registry`
	_ = prometheus.DefaultRegisterer           // want `prometheus.DefaultRegisterer uses the global Prometheus registry`
	_ = promhttp.HandlerFor(prometheus.DefaultGatherer) // want `prometheus.DefaultGatherer uses the global Prometheus registry`
	_ = promhttp.Handler()                     // want `promhttp.Handler uses the global Prometheus registry`
}

func owned() {
	reg := prometheus.NewRegistry()
	c := promauto.With(reg).NewCounter(prometheus.CounterOpts{Name: "ok"})
	reg.MustRegister(c)
	_ = reg.Register(c)
	_ = promhttp.HandlerFor(reg)
	_ = hits
}
