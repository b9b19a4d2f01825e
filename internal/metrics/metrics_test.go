package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordFetch("yahoo", true, 120*time.Millisecond)
	r.RecordFetch("yahoo", true, 80*time.Millisecond)
	r.RecordFetch("yahoo", false, time.Second)
	r.RecordScan(300*time.Millisecond, []string{"momentum", "momentum", "mean_reversion"})
	r.RecordTrade("win")
	r.RecordTrade("loss")
	r.RecordTrade("win")
	r.RecordPrediction(62)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetchTotal.WithLabelValues("yahoo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchTotal.WithLabelValues("yahoo", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.opportunitiesTotal.WithLabelValues("momentum")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.opportunitiesTotal.WithLabelValues("mean_reversion")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.backtestTradesTotal.WithLabelValues("win")))

	count, err := testutil.GatherAndCount(reg, "stockscope_fetch_duration_seconds", "stockscope_prediction_confidence", "stockscope_scan_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordFetch("yahoo", true, time.Second)
		r.RecordScan(time.Second, []string{"momentum"})
		r.RecordTrade("win")
		r.RecordPrediction(50)
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
