package tele

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/temoto/gazestream/outlet"
	"github.com/temoto/gazestream/sample"
)

const Namespace = "gazestream"

const (
	FrameData  = "data"
	FrameOther = "other"
)

const (
	DropMissing   = "missing"
	DropMalformed = "malformed"
	DropTooLong   = "too_long"
)

// Stat is bridge telemetry in own registry, so tests and multiple bridges do not collide.
// Nil *Stat is valid and counts nothing.
type Stat struct {
	Registry *prometheus.Registry

	BytesReceived  prometheus.Counter
	BytesSent      prometheus.Counter
	Frames         *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
	Samples        prometheus.Counter
	PublishErrors  prometheus.Counter
	Rate           prometheus.Gauge
	LastSampleTime prometheus.Gauge
	Outlet         *outlet.Stat
}

func NewStat() *Stat {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: Namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help})
	}
	s := &Stat{
		Registry:      prometheus.NewRegistry(),
		BytesReceived: counter("device_received_bytes_total", "Bytes read from eye tracker control server"),
		BytesSent:     counter("device_sent_bytes_total", "Bytes written to eye tracker control server"),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_total",
			Help:      "Complete frames received by kind",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "frames_dropped_total",
			Help:      "Data frames not published by reason",
		}, []string{"reason"}),
		Samples:        counter("samples_published_total", "Samples handed to outlet"),
		PublishErrors:  counter("publish_errors_total", "Outlet push failures"),
		Rate:           gauge("sample_rate_hz", "Instantaneous rate from last two sample timestamps"),
		LastSampleTime: gauge("last_sample_time_seconds", "Device TIME of last published sample"),
		Outlet:         outlet.NewStat(Namespace),
	}
	s.Registry.MustRegister(
		s.BytesReceived, s.BytesSent, s.Frames, s.Dropped,
		s.Samples, s.PublishErrors, s.Rate, s.LastSampleTime,
	)
	s.Registry.MustRegister(s.Outlet.Collectors()...)
	return s
}

func (s *Stat) Frame(kind string) {
	if s != nil {
		s.Frames.WithLabelValues(kind).Inc()
	}
}

func (s *Stat) Drop(reason string) {
	if s != nil {
		s.Dropped.WithLabelValues(reason).Inc()
	}
}

func (s *Stat) PublishError() {
	if s != nil {
		s.PublishErrors.Inc()
	}
}

// Published records sample time and rate. Non-finite rate leaves gauge as is.
func (s *Stat) Published(t, rate float64) {
	if s == nil {
		return
	}
	s.Samples.Inc()
	s.LastSampleTime.Set(t)
	if sample.IsFinite(rate) {
		s.Rate.Set(rate)
	}
}

func (s *Stat) OutletStat() *outlet.Stat {
	if s == nil {
		return nil
	}
	return s.Outlet
}
