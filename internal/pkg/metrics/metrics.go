package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upload outcomes used as label values.
const (
	OutcomeCompressed = "compressed"
	OutcomeFallback   = "fallback"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

// Observer captures pipeline telemetry.
type Observer interface {
	RecordUpload(outcome string, duration time.Duration, inBytes, outBytes int)
	RecordDegraded(stage string)
	RecordRejected(kind string)
	RecordSweep(removedTemp, removedSuperseded, failed int)
}

// PrometheusObserver exports pipeline metrics to Prometheus.
type PrometheusObserver struct {
	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	bytesIn        prometheus.Counter
	bytesOut       prometheus.Counter
	degraded       *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	swept          *prometheus.CounterVec
}

// NewPrometheusObserver registers the pipeline metrics on reg (the default
// registerer when nil). Registering twice on the same registry reuses the
// existing collectors.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "avatar"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	o := &PrometheusObserver{}

	o.uploads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Uploads by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	o.uploadDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "End-to-end upload latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	o.bytesIn, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "received_bytes_total",
		Help:      "Accepted upload payload bytes.",
	}))
	if err != nil {
		return nil, err
	}
	o.bytesOut, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stored_bytes_total",
		Help:      "Bytes written to the image store.",
	}))
	if err != nil {
		return nil, err
	}
	o.degraded, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_total",
		Help:      "Pipeline runs that fell back to the original bytes, by failing stage.",
	}, []string{"stage"}))
	if err != nil {
		return nil, err
	}
	o.rejected, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_total",
		Help:      "Uploads refused before storage, by failure kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	o.swept, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "janitor_entries_total",
		Help:      "Entries handled by the janitor, by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) RecordUpload(outcome string, duration time.Duration, inBytes, outBytes int) {
	if o == nil {
		return
	}
	o.uploads.WithLabelValues(outcome).Inc()
	o.uploadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if inBytes > 0 {
		o.bytesIn.Add(float64(inBytes))
	}
	if outBytes > 0 {
		o.bytesOut.Add(float64(outBytes))
	}
}

func (o *PrometheusObserver) RecordDegraded(stage string) {
	if o == nil {
		return
	}
	o.degraded.WithLabelValues(stage).Inc()
}

func (o *PrometheusObserver) RecordRejected(kind string) {
	if o == nil {
		return
	}
	o.rejected.WithLabelValues(kind).Inc()
}

func (o *PrometheusObserver) RecordSweep(removedTemp, removedSuperseded, failed int) {
	if o == nil {
		return
	}
	o.swept.WithLabelValues("temp").Add(float64(removedTemp))
	o.swept.WithLabelValues("superseded").Add(float64(removedSuperseded))
	o.swept.WithLabelValues("failed").Add(float64(failed))
}

type nopObserver struct{}

// Nop returns an Observer that records nothing.
func Nop() Observer { return nopObserver{} }

func (nopObserver) RecordUpload(string, time.Duration, int, int) {}

func (nopObserver) RecordDegraded(string) {}

func (nopObserver) RecordRejected(string) {}

func (nopObserver) RecordSweep(int, int, int) {}
