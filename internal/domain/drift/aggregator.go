package drift

import (
	"math"
	"sort"
	"time"
)

const (
	// Devices reporting below this health score count as having issues.
	healthIssueThreshold = 0.7
	// Devices whose observed max drift reaches this many ms count as having issues.
	driftIssueThresholdMs = 500
)

// Sample is a single drift measurement reported by a device.
type Sample struct {
	DriftMs float64   `json:"drift_ms"`
	At      time.Time `json:"at"`
}

// DeviceRecord is the per-device runtime state the aggregator consumes.
type DeviceRecord struct {
	Status      string
	ResyncCount int64
	HealthScore float64
	MaxDriftMs  float64
	History     []Sample
}

// Summary holds session-level drift statistics. Metric pointers are nil when
// there were no samples at all, which is different from measuring zero drift.
type Summary struct {
	SampleCount       int      `json:"sample_count"`
	AvgDriftMs        *float64 `json:"avg_drift_ms"`
	P50DriftMs        *float64 `json:"p50_drift_ms"`
	P90DriftMs        *float64 `json:"p90_drift_ms"`
	P95DriftMs        *float64 `json:"p95_drift_ms"`
	P99DriftMs        *float64 `json:"p99_drift_ms"`
	MaxDriftMs        *float64 `json:"max_drift_ms"`
	TotalResyncs      int64    `json:"total_resyncs"`
	DevicesWithIssues int64    `json:"devices_with_issues"`
}

// Aggregate computes the session-wide drift summary for a set of device
// records. The same function backs both the live session view and the
// persisted stop-time quality summary, so the two never disagree on a
// given set of samples.
func Aggregate(records []DeviceRecord) Summary {
	var samples []float64
	var totalResyncs int64
	var withIssues int64

	for _, rec := range records {
		observed := deviceSamples(rec)
		samples = append(samples, observed...)

		if rec.ResyncCount > 0 {
			totalResyncs += rec.ResyncCount
		}
		if hasIssues(rec, observed) {
			withIssues++
		}
	}

	s := Summary{
		SampleCount:       len(samples),
		TotalResyncs:      totalResyncs,
		DevicesWithIssues: withIssues,
	}
	if len(samples) == 0 {
		return s
	}

	sort.Float64s(samples)

	var sum float64
	for _, v := range samples {
		sum += v
	}
	s.AvgDriftMs = round3(sum / float64(len(samples)))
	s.P50DriftMs = round3(percentile(samples, 50))
	s.P90DriftMs = round3(percentile(samples, 90))
	s.P95DriftMs = round3(percentile(samples, 95))
	s.P99DriftMs = round3(percentile(samples, 99))
	s.MaxDriftMs = round3(samples[len(samples)-1])

	return s
}

// deviceSamples normalizes a device's drift history to absolute millisecond
// values. A device that only ever reported a summary still contributes its
// recorded max drift as a single sample.
func deviceSamples(rec DeviceRecord) []float64 {
	if len(rec.History) == 0 {
		if rec.MaxDriftMs > 0 {
			return []float64{rec.MaxDriftMs}
		}
		return nil
	}
	out := make([]float64, 0, len(rec.History))
	for _, s := range rec.History {
		out = append(out, math.Abs(s.DriftMs))
	}
	return out
}

func hasIssues(rec DeviceRecord, observed []float64) bool {
	if rec.Status == "ERRORED" || rec.Status == "DISCONNECTED" {
		return true
	}
	if rec.HealthScore < healthIssueThreshold {
		return true
	}
	maxObserved := rec.MaxDriftMs
	for _, v := range observed {
		if v > maxObserved {
			maxObserved = v
		}
	}
	return maxObserved >= driftIssueThresholdMs
}

// percentile computes the p-th percentile of sorted ascending samples using
// linear interpolation between closest ranks: r = (p/100)*(n-1), interpolated
// between floor(r) and ceil(r) by the fractional part.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	r := (p / 100) * float64(n-1)
	lo := int(math.Floor(r))
	hi := int(math.Ceil(r))
	if lo == hi {
		return sorted[lo]
	}
	frac := r - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round3(v float64) *float64 {
	r := math.Round(v*1000) / 1000
	return &r
}
