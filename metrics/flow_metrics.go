package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tommyyama2020/corda/util"
)

const CheckpointingRateMetric = "Flows.Checkpointing Rate"
const CheckpointVolumeHistMetric = "Flows.CheckpointVolumeBytesPerSecondHist"
const CheckpointVolumeCurrentMetric = "Flows.CheckpointVolumeBytesPerSecondCurrent"

// bandwidth histogram buckets, 1KiB to 1GiB
var volumeBuckets = prometheus.ExponentialBuckets(1024, 4, 11)

// FlowMetrics carries the checkpointing instruments. Bandwidth is a rate:
// the histogram takes at most one sample per second, produced by whichever
// writer wins the compare-and-swap on lastBandwidthUpdate. Every write
// still lands in the one-second reservoir, so the sample is a true rolling
// bytes-per-second figure.
type FlowMetrics struct {
	checkpointingRate   prometheus.Counter
	checkpointVolume    prometheus.Histogram
	reservoir           *slidingReservoir
	lastBandwidthUpdate int64
	clock               util.Clock
}

func NewFlowMetrics(registry *Registry, clock util.Clock) *FlowMetrics {
	m := &FlowMetrics{
		checkpointingRate: registry.Counter(CheckpointingRateMetric),
		checkpointVolume:  registry.Histogram(CheckpointVolumeHistMetric, volumeBuckets),
		reservoir:         newSlidingReservoir(time.Second),
		clock:             clock,
	}
	registry.GaugeFunc(CheckpointVolumeCurrentMetric, func() float64 {
		return float64(m.reservoir.Sum(m.clock.Now()))
	})
	return m
}

// RecordCheckpoint accounts one persisted checkpoint of the given
// serialized size.
func (m *FlowMetrics) RecordCheckpoint(size int) {
	m.checkpointingRate.Inc()
	now := m.clock.Now()
	m.reservoir.Update(now, int64(size))

	last := atomic.LoadInt64(&m.lastBandwidthUpdate)
	nowNanos := now.UnixNano()
	if nowNanos-last >= int64(time.Second) &&
		atomic.CompareAndSwapInt64(&m.lastBandwidthUpdate, last, nowNanos) {
		m.checkpointVolume.Observe(float64(m.reservoir.Sum(now)))
	}
}

// CurrentBytesPerSecond is the rolling one-second checkpoint volume.
func (m *FlowMetrics) CurrentBytesPerSecond() int64 {
	return m.reservoir.Sum(m.clock.Now())
}

type sample struct {
	at time.Time
	v  int64
}

// slidingReservoir keeps the samples of the trailing window.
type slidingReservoir struct {
	mu      sync.Mutex
	window  time.Duration
	samples []sample
}

func newSlidingReservoir(window time.Duration) *slidingReservoir {
	return &slidingReservoir{window: window}
}

func (r *slidingReservoir) Update(now time.Time, v int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	r.samples = append(r.samples, sample{at: now, v: v})
}

func (r *slidingReservoir) Sum(now time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	var sum int64
	for _, s := range r.samples {
		sum += s.v
	}
	return sum
}

func (r *slidingReservoir) Size(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	return len(r.samples)
}

func (r *slidingReservoir) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.samples) && !r.samples[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		r.samples = append(r.samples[:0], r.samples[i:]...)
	}
}
