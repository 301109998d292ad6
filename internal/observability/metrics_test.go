package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestViewerCollectorRecordsLoadOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewViewerCollector(reg)
	if err != nil {
		t.Fatalf("NewViewerCollector: %v", err)
	}

	collector.RecordTrackLoad(25*time.Millisecond, 181, nil)
	collector.RecordTrackLoad(10*time.Millisecond, 0, errors.New("boom"))

	if got := testutil.ToFloat64(collector.TrackLoads.WithLabelValues("ok")); got != 1 {
		t.Fatalf("viewer_track_loads_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TrackLoads.WithLabelValues("error")); got != 1 {
		t.Fatalf("viewer_track_loads_total{error} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "viewer_track_load_duration_seconds", nil); count != 2 {
		t.Fatalf("viewer_track_load_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestViewerCollectorLivePollOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewViewerCollector(reg)
	if err != nil {
		t.Fatalf("NewViewerCollector: %v", err)
	}

	collector.RecordLivePoll(true, nil)
	collector.RecordLivePoll(false, nil)
	collector.RecordLivePoll(false, errors.New("timeout"))
	collector.RecordStaleDrop()
	collector.SetTimelinePoints(182)

	for _, tc := range []struct {
		outcome string
		want    float64
	}{
		{"ok", 1},
		{"duplicate", 1},
		{"error", 1},
	} {
		if got := testutil.ToFloat64(collector.LivePolls.WithLabelValues(tc.outcome)); got != tc.want {
			t.Fatalf("viewer_live_polls_total{%s} = %v, want %v", tc.outcome, got, tc.want)
		}
	}
	if got := testutil.ToFloat64(collector.StaleDrops); got != 1 {
		t.Fatalf("viewer_stale_results_dropped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TimelinePoints); got != 182 {
		t.Fatalf("viewer_timeline_points = %v, want 182", got)
	}
}

func TestNilViewerCollectorIsSafe(t *testing.T) {
	var collector *ViewerCollector
	collector.RecordTrackLoad(time.Second, 10, nil)
	collector.RecordLivePoll(true, nil)
	collector.RecordStaleDrop()
	collector.SetTimelinePoints(5)
}

func TestBackendInstrumentHandlerRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewBackendCollector(reg)
	if err != nil {
		t.Fatalf("NewBackendCollector: %v", err)
	}

	handler := collector.InstrumentHandler("track", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/satellite/nope/track", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("track", "404")); got != 1 {
		t.Fatalf("backend_http_requests_total{track,404} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "backend_http_request_duration_seconds", map[string]string{
		"route": "track",
	}); count != 1 {
		t.Fatalf("backend_http_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestMetricsHandlerExposesViewerSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewViewerCollector(reg)
	if err != nil {
		t.Fatalf("NewViewerCollector: %v", err)
	}
	collector.RecordTrackLoad(50*time.Millisecond, 181, nil)
	collector.SetTimelinePoints(181)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"viewer_track_loads_total",
		"viewer_track_load_duration_seconds",
		"viewer_live_polls_total",
		"viewer_stale_results_dropped_total",
		"viewer_timeline_points",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestRepeatedRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewViewerCollector(reg)
	if err != nil {
		t.Fatalf("NewViewerCollector (first): %v", err)
	}
	second, err := NewViewerCollector(reg)
	if err != nil {
		t.Fatalf("NewViewerCollector (second): %v", err)
	}

	first.RecordStaleDrop()
	second.RecordStaleDrop()
	if got := testutil.ToFloat64(second.StaleDrops); got != 2 {
		t.Fatalf("shared stale drop counter = %v, want 2", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
