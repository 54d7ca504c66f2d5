package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	operationsFamily = "hospital_appointments_operations_total"
	rejectionsFamily = "hospital_appointments_rejections_total"
	retriesFamily    = "hospital_appointments_conflict_retries_total"
	latencyFamily    = "hospital_appointments_operation_latency_seconds"
	paymentsFamily   = "hospital_payments_events_total"
)

// LatencySummary describes one operation's latency histogram.
type LatencySummary struct {
	Count int64   `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// BookingSnapshot is the admin view of the booking counters.
type BookingSnapshot struct {
	Operations      map[string]map[string]int64 `json:"operations"`
	Rejections      map[string]int64            `json:"rejections"`
	ConflictRetries int64                       `json:"conflict_retries"`
	Payments        map[string]map[string]int64 `json:"payments"`
	Latency         map[string]LatencySummary   `json:"latency"`
}

// Snapshot reads the booking families out of gatherer.
func Snapshot(gatherer prometheus.Gatherer) (BookingSnapshot, error) {
	out := BookingSnapshot{
		Operations: map[string]map[string]int64{},
		Rejections: map[string]int64{},
		Payments:   map[string]map[string]int64{},
		Latency:    map[string]LatencySummary{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out, err
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case operationsFamily:
			for _, m := range mf.Metric {
				addNested(out.Operations, label(m, "operation"), label(m, "outcome"), m.GetCounter().GetValue())
			}
		case rejectionsFamily:
			for _, m := range mf.Metric {
				out.Rejections[label(m, "code")] += int64(m.GetCounter().GetValue())
			}
		case retriesFamily:
			for _, m := range mf.Metric {
				out.ConflictRetries += int64(m.GetCounter().GetValue())
			}
		case paymentsFamily:
			for _, m := range mf.Metric {
				addNested(out.Payments, label(m, "event"), label(m, "status"), m.GetCounter().GetValue())
			}
		case latencyFamily:
			for _, m := range mf.Metric {
				h := m.GetHistogram()
				if h == nil || h.GetSampleCount() == 0 {
					continue
				}
				out.Latency[label(m, "operation")] = LatencySummary{
					Count: int64(h.GetSampleCount()),
					P50Ms: quantile(0.50, h) * 1000,
					P95Ms: quantile(0.95, h) * 1000,
				}
			}
		}
	}
	return out, nil
}

// StatsHandler serves the snapshot as JSON.
func StatsHandler(gatherer prometheus.Gatherer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := Snapshot(gatherer)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "metrics unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func addNested(dst map[string]map[string]int64, outer, inner string, v float64) {
	if dst[outer] == nil {
		dst[outer] = map[string]int64{}
	}
	dst[outer][inner] += int64(v)
}

func label(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// quantile interpolates linearly inside the bucket holding rank q. Samples
// past the last finite bound report that bound.
func quantile(q float64, h *dto.Histogram) float64 {
	buckets := make([]*dto.Bucket, 0, len(h.Bucket))
	for _, b := range h.Bucket {
		if b != nil && !math.IsInf(b.GetUpperBound(), 1) {
			buckets = append(buckets, b)
		}
	}
	if len(buckets) == 0 {
		return 0
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].GetUpperBound() < buckets[j].GetUpperBound() })

	rank := q * float64(h.GetSampleCount())
	lowerBound, lowerCount := 0.0, 0.0
	for _, b := range buckets {
		cum := float64(b.GetCumulativeCount())
		if cum >= rank {
			if cum == lowerCount {
				return b.GetUpperBound()
			}
			return lowerBound + (b.GetUpperBound()-lowerBound)*(rank-lowerCount)/(cum-lowerCount)
		}
		lowerBound, lowerCount = b.GetUpperBound(), cum
	}
	return buckets[len(buckets)-1].GetUpperBound()
}
