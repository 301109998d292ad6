package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ViewerCollector bundles Prometheus metrics for the trajectory viewer:
// ground track loads, live position polls, stale-result drops, and the size
// of the active timeline.
type ViewerCollector struct {
	gatherer prometheus.Gatherer

	TrackLoads         *prometheus.CounterVec
	TrackLoadDurations prometheus.Histogram
	LivePolls          *prometheus.CounterVec

	StaleDrops     prometheus.Counter
	TimelinePoints prometheus.Gauge
}

// NewViewerCollector registers viewer Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewViewerCollector(reg prometheus.Registerer) (*ViewerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_track_loads_total",
		Help: "Total number of ground track loads, labeled by outcome.",
	}, []string{"outcome"})
	loads, err := registerCounterVec(reg, loads, "viewer_track_loads_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewer_track_load_duration_seconds",
		Help:    "Ground track load latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "viewer_track_load_duration_seconds")
	if err != nil {
		return nil, err
	}

	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_live_polls_total",
		Help: "Total number of live position polls, labeled by outcome.",
	}, []string{"outcome"})
	polls, err = registerCounterVec(reg, polls, "viewer_live_polls_total")
	if err != nil {
		return nil, err
	}

	staleDrops, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewer_stale_results_dropped_total",
		Help: "Results discarded because a newer selection superseded them.",
	}), "viewer_stale_results_dropped_total")
	if err != nil {
		return nil, err
	}

	timelinePoints, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewer_timeline_points",
		Help: "Current number of samples held by the active position timeline.",
	}), "viewer_timeline_points")
	if err != nil {
		return nil, err
	}

	return &ViewerCollector{
		gatherer:           gatherer,
		TrackLoads:         loads,
		TrackLoadDurations: durations,
		LivePolls:          polls,
		StaleDrops:         staleDrops,
		TimelinePoints:     timelinePoints,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ViewerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordTrackLoad satisfies the viewer's metrics recorder interface: one
// count per load attempt plus an observed latency.
func (c *ViewerCollector) RecordTrackLoad(d time.Duration, points int, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if c.TrackLoads != nil {
		c.TrackLoads.WithLabelValues(outcome).Inc()
	}
	if c.TrackLoadDurations != nil {
		c.TrackLoadDurations.Observe(d.Seconds())
	}
}

// RecordLivePoll counts one live position poll. Polls that succeeded but
// carried a sample at or before the timeline tail count as "duplicate".
func (c *ViewerCollector) RecordLivePoll(appended bool, err error) {
	if c == nil || c.LivePolls == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case !appended:
		outcome = "duplicate"
	}
	c.LivePolls.WithLabelValues(outcome).Inc()
}

// RecordStaleDrop counts one result suppressed by the stale-session guard.
func (c *ViewerCollector) RecordStaleDrop() {
	if c == nil || c.StaleDrops == nil {
		return
	}
	c.StaleDrops.Inc()
}

// SetTimelinePoints records the size of the active timeline.
func (c *ViewerCollector) SetTimelinePoints(n int) {
	if c == nil || c.TimelinePoints == nil {
		return
	}
	c.TimelinePoints.Set(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, histogram prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return histogram, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
