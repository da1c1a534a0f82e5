package registry

import (
	"maps"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

const namespace = "vnstat"

var (
	trafficLabels = []string{"interface", "direction"}

	trafficTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "traffic", "total"),
		"Total network traffic in bytes.",
		trafficLabels, nil,
	)
	resetsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "traffic", "counter_resets_total"),
		"Number of times the source traffic counter went backwards.",
		trafficLabels, nil,
	)
	lastUpdateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "interface", "last_update_timestamp_seconds"),
		"Time the source last updated the interface, in unix seconds.",
		[]string{"interface"}, nil,
	)
	periodDescs = map[domain.Period]*prometheus.Desc{
		domain.FiveMinute: prometheus.NewDesc(namespace+"_traffic_5min", "Traffic in the last 5 minutes in bytes.", trafficLabels, nil),
		domain.Hour:       prometheus.NewDesc(namespace+"_traffic_hourly", "Hourly network traffic in bytes.", trafficLabels, nil),
		domain.Day:        prometheus.NewDesc(namespace+"_traffic_daily", "Daily network traffic in bytes.", trafficLabels, nil),
		domain.Month:      prometheus.NewDesc(namespace+"_traffic_monthly", "Monthly network traffic in bytes.", trafficLabels, nil),
		domain.Year:       prometheus.NewDesc(namespace+"_traffic_yearly", "Yearly network traffic in bytes.", trafficLabels, nil),
	}
)

// collector adapts a Registry to prometheus.Collector.
type collector struct {
	r *Registry
}

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- trafficTotalDesc
	ch <- resetsDesc
	ch <- lastUpdateDesc
	for _, p := range domain.Periods {
		ch <- periodDescs[p]
	}
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	for name, set := range c.r.copySets() {
		rx, tx := string(domain.RX), string(domain.TX)
		ch <- prometheus.MustNewConstMetric(trafficTotalDesc, prometheus.CounterValue, float64(set.rx), name, rx)
		ch <- prometheus.MustNewConstMetric(trafficTotalDesc, prometheus.CounterValue, float64(set.tx), name, tx)
		ch <- prometheus.MustNewConstMetric(resetsDesc, prometheus.CounterValue, float64(set.rxResets), name, rx)
		ch <- prometheus.MustNewConstMetric(resetsDesc, prometheus.CounterValue, float64(set.txResets), name, tx)
		if !set.updated.IsZero() {
			ch <- prometheus.MustNewConstMetric(lastUpdateDesc, prometheus.GaugeValue, float64(set.updated.Unix()), name)
		}
		for p, t := range set.periods {
			desc, ok := periodDescs[p]
			if !ok {
				continue
			}
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(t.RX), name, rx)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(t.TX), name, tx)
		}
	}
}

// copySets takes a consistent copy so collection never observes a half-applied batch.
func (r *Registry) copySets() map[string]metricSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]metricSet, len(r.sets))
	for name, set := range r.sets {
		cp := *set
		cp.periods = maps.Clone(set.periods)
		out[name] = cp
	}
	return out
}
