package metrics

import (
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"github.com/tommyyama2020/corda/util"
)

func histSampleCount(t *testing.T, m *FlowMetrics) uint64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, m.checkpointVolume.Write(&metric))
	return metric.Histogram.GetSampleCount()
}

func TestRegistryMapsFrameworkNames(t *testing.T) {
	registry := NewRegistry()
	clock := util.NewManualClock(time.Now())
	NewFlowMetrics(registry, clock)

	require.True(t, registry.Registered(CheckpointingRateMetric))
	require.True(t, registry.Registered(CheckpointVolumeHistMetric))
	require.True(t, registry.Registered(CheckpointVolumeCurrentMetric))

	// the same name resolves to the same collector
	c1 := registry.Counter(CheckpointingRateMetric)
	c2 := registry.Counter(CheckpointingRateMetric)
	require.Same(t, c1, c2)
}

func TestRecordCheckpointCountsEveryWrite(t *testing.T) {
	registry := NewRegistry()
	clock := util.NewManualClock(time.Now())
	m := NewFlowMetrics(registry, clock)

	m.RecordCheckpoint(100)
	m.RecordCheckpoint(250)

	var metric dto.Metric
	require.NoError(t, m.checkpointingRate.Write(&metric))
	require.Equal(t, float64(2), metric.Counter.GetValue())
	require.Equal(t, int64(350), m.CurrentBytesPerSecond())
}

func TestReservoirForgetsOldSamples(t *testing.T) {
	clock := util.NewManualClock(time.Now())
	r := newSlidingReservoir(time.Second)

	r.Update(clock.Now(), 100)
	clock.Advance(400 * time.Millisecond)
	r.Update(clock.Now(), 200)
	require.Equal(t, int64(300), r.Sum(clock.Now()))

	clock.Advance(700 * time.Millisecond)
	require.Equal(t, int64(200), r.Sum(clock.Now()), "first sample left the window")

	clock.Advance(time.Second)
	require.Equal(t, int64(0), r.Sum(clock.Now()))
	require.Equal(t, 0, r.Size(clock.Now()))
}

func TestBandwidthHistogramSamplesOncePerSecond(t *testing.T) {
	registry := NewRegistry()
	clock := util.NewManualClock(time.Now())
	m := NewFlowMetrics(registry, clock)

	for i := 0; i < 1000; i++ {
		m.RecordCheckpoint(10)
	}
	require.Equal(t, uint64(1), histSampleCount(t, m), "a burst inside one second yields one sample")

	clock.Advance(2 * time.Second)
	m.RecordCheckpoint(10)
	require.Equal(t, uint64(2), histSampleCount(t, m))

	clock.Advance(500 * time.Millisecond)
	m.RecordCheckpoint(10)
	require.Equal(t, uint64(2), histSampleCount(t, m), "half a second later no new sample")
}

func TestBandwidthSamplingUnderContention(t *testing.T) {
	registry := NewRegistry()
	clock := util.NewManualClock(time.Now())
	m := NewFlowMetrics(registry, clock)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				m.RecordCheckpoint(64)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(1), histSampleCount(t, m), "only one CAS winner per second")
}
