package promauto

import "github.com/prometheus/client_golang/prometheus"

type Factory struct{ r prometheus.Registerer }

func With(r prometheus.Registerer) Factory { return Factory{r: r} }

func (f Factory) NewCounter(opts prometheus.CounterOpts) *prometheus.Counter {
	return prometheus.NewCounter(opts)
}

func NewCounter(opts prometheus.CounterOpts) *prometheus.Counter {
	return prometheus.NewCounter(opts)
}
