package drift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesOf(values ...float64) []Sample {
	now := time.Now()
	out := make([]Sample, 0, len(values))
	for i, v := range values {
		out = append(out, Sample{DriftMs: v, At: now.Add(time.Duration(i) * time.Second)})
	}
	return out
}

func TestAggregate_Percentiles(t *testing.T) {
	// Negative drift is normalized to its absolute value before ranking.
	records := []DeviceRecord{
		{Status: "PLAYING", HealthScore: 1, History: samplesOf(10, 20, -40, 100)},
	}

	s := Aggregate(records)

	assert.Equal(t, 4, s.SampleCount)
	require.NotNil(t, s.P50DriftMs)
	assert.InDelta(t, 30, *s.P50DriftMs, 0.0001)
	assert.InDelta(t, 82, *s.P90DriftMs, 0.0001)
	assert.InDelta(t, 91, *s.P95DriftMs, 0.0001)
	assert.InDelta(t, 98.2, *s.P99DriftMs, 0.0001)
	assert.InDelta(t, 100, *s.MaxDriftMs, 0.0001)
	assert.InDelta(t, 42.5, *s.AvgDriftMs, 0.0001)
}

func TestAggregate_EmptyInputYieldsNilMetrics(t *testing.T) {
	s := Aggregate(nil)

	assert.Equal(t, 0, s.SampleCount)
	assert.Nil(t, s.AvgDriftMs)
	assert.Nil(t, s.P50DriftMs)
	assert.Nil(t, s.P99DriftMs)
	assert.Nil(t, s.MaxDriftMs)
	assert.Zero(t, s.TotalResyncs)
	assert.Zero(t, s.DevicesWithIssues)
}

func TestAggregate_SingleSample(t *testing.T) {
	s := Aggregate([]DeviceRecord{
		{Status: "PLAYING", HealthScore: 1, History: samplesOf(42)},
	})

	require.NotNil(t, s.P50DriftMs)
	assert.Equal(t, 42.0, *s.P50DriftMs)
	assert.Equal(t, 42.0, *s.P99DriftMs)
	assert.Equal(t, 42.0, *s.MaxDriftMs)
}

func TestAggregate_MaxDriftFallbackWhenNoHistory(t *testing.T) {
	s := Aggregate([]DeviceRecord{
		{Status: "PLAYING", HealthScore: 1, MaxDriftMs: 75},
	})

	assert.Equal(t, 1, s.SampleCount)
	require.NotNil(t, s.AvgDriftMs)
	assert.Equal(t, 75.0, *s.AvgDriftMs)
}

func TestAggregate_DevicesWithIssues(t *testing.T) {
	tests := []struct {
		name string
		rec  DeviceRecord
		want int64
	}{
		{"errored status", DeviceRecord{Status: "ERRORED", HealthScore: 1}, 1},
		{"disconnected status", DeviceRecord{Status: "DISCONNECTED", HealthScore: 1}, 1},
		{"low health score", DeviceRecord{Status: "PLAYING", HealthScore: 0.5}, 1},
		{"high drift in history", DeviceRecord{Status: "PLAYING", HealthScore: 1, History: samplesOf(600)}, 1},
		{"high recorded max drift", DeviceRecord{Status: "PLAYING", HealthScore: 1, MaxDriftMs: 500}, 1},
		{"healthy", DeviceRecord{Status: "PLAYING", HealthScore: 0.95, History: samplesOf(12, 30)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Aggregate([]DeviceRecord{tt.rec})
			assert.Equal(t, tt.want, s.DevicesWithIssues)
		})
	}
}

func TestAggregate_ResyncCountsClamped(t *testing.T) {
	s := Aggregate([]DeviceRecord{
		{Status: "PLAYING", HealthScore: 1, ResyncCount: 3},
		{Status: "PLAYING", HealthScore: 1, ResyncCount: -5},
		{Status: "PLAYING", HealthScore: 1, ResyncCount: 2},
	})

	assert.Equal(t, int64(5), s.TotalResyncs)
}

func TestAggregate_RoundsToThreeDecimals(t *testing.T) {
	s := Aggregate([]DeviceRecord{
		{Status: "PLAYING", HealthScore: 1, History: samplesOf(1, 2, 2)},
	})

	require.NotNil(t, s.AvgDriftMs)
	assert.Equal(t, 1.667, *s.AvgDriftMs)
}
