package outlet

import "github.com/prometheus/client_golang/prometheus"

// Stat is optional, nil *Stat is valid.
type Stat struct {
	Subscribers prometheus.Gauge
	SentBytes   prometheus.Counter
}

func NewStat(namespace string) *Stat {
	return &Stat{
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outlet",
			Name:      "subscribers",
			Help:      "Connected subscribers, websocket outlet only",
		}),
		SentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outlet",
			Name:      "sent_bytes_total",
			Help:      "Encoded payload bytes handed to transport",
		}),
	}
}

func (s *Stat) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.Subscribers, s.SentBytes}
}

func (s *Stat) sent(n int) {
	if s != nil {
		s.SentBytes.Add(float64(n))
	}
}

func (s *Stat) subscribers(n int) {
	if s != nil {
		s.Subscribers.Set(float64(n))
	}
}
