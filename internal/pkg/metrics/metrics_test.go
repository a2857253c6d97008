package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.RecordUpload(OutcomeCompressed, 20*time.Millisecond, 1000, 400)
	o.RecordUpload(OutcomeFallback, 5*time.Millisecond, 300, 300)
	o.RecordDegraded("decode")
	o.RecordRejected("ExceedsSizeLimit")
	o.RecordSweep(2, 1, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.uploads.WithLabelValues(OutcomeCompressed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.uploads.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1300.0, testutil.ToFloat64(o.bytesIn))
	assert.Equal(t, 700.0, testutil.ToFloat64(o.bytesOut))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.degraded.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.rejected.WithLabelValues("ExceedsSizeLimit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.swept.WithLabelValues("temp")))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	second.RecordRejected("UnsupportedFormat")
	assert.Equal(t, 1.0, testutil.ToFloat64(first.rejected.WithLabelValues("UnsupportedFormat")))
}

func TestNilObserverIsSafe(t *testing.T) {
	var o *PrometheusObserver
	assert.NotPanics(t, func() {
		o.RecordUpload(OutcomeFailed, time.Second, 1, 0)
		o.RecordDegraded("encode")
		o.RecordRejected("x")
		o.RecordSweep(1, 1, 1)
	})
	assert.NotPanics(t, func() { Nop().RecordSweep(1, 2, 3) })
}
