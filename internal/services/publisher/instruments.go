package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

type instruments struct {
	samples     *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	up          prometheus.Gauge
}

// newInstruments registers the exporter's own metrics on reg. A nil reg leaves them unregistered.
func newInstruments(reg prometheus.Registerer) *instruments {
	f := promauto.With(reg)
	in := &instruments{
		samples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vnstat_exporter",
			Name:      "samples_total",
			Help:      "Sampling attempts by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vnstat_exporter",
			Name:      "sample_duration_seconds",
			Help:      "Time spent reading the statistics source.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "vnstat_exporter",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sample.",
		}),
		up: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "vnstat_exporter",
			Name:      "up",
			Help:      "Whether the last sample succeeded.",
		}),
	}
	for _, kind := range []string{"success", "source_unavailable", "parse", "error"} {
		in.samples.WithLabelValues(kind)
	}
	return in
}

func (in *instruments) observe(o Outcome) {
	in.samples.WithLabelValues(domain.ErrorKind(o.Err)).Inc()
	in.duration.Observe(o.Duration.Seconds())
	if o.Err != nil {
		in.up.Set(0)
		return
	}
	in.up.Set(1)
	in.lastSuccess.Set(float64(o.At.Add(o.Duration).UnixNano()) / float64(time.Second))
}
