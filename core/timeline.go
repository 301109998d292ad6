package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/orbitview/model"
)

// timelineSample pairs an instant with its Earth-fixed position.
type timelineSample struct {
	t   time.Time
	pos Vec3
}

// Timeline maps time to an interpolated Earth-fixed position. It is built
// from a ground track once and may grow at the tail as live samples arrive.
// Queries outside the sampled span clamp to the nearest endpoint.
type Timeline struct {
	mu      sync.RWMutex
	samples []timelineSample
}

// NewTimeline converts a validated ground track into a timeline. Geodetic
// samples are converted to Earth-fixed metres up front so queries stay cheap.
func NewTimeline(track model.GroundTrack) (*Timeline, error) {
	if err := track.Validate(); err != nil {
		return nil, fmt.Errorf("building timeline: %w", err)
	}
	samples := make([]timelineSample, 0, len(track))
	for _, p := range track {
		samples = append(samples, timelineSample{
			t:   p.TimeUTC,
			pos: GeodeticToECEF(p.Lat, p.Lon, p.AltKm),
		})
	}
	return &Timeline{samples: samples}, nil
}

// At returns the position at t. Between samples the position is interpolated
// linearly along the chord; outside the span it clamps to the first or last
// sample.
func (tl *Timeline) At(t time.Time) Vec3 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	s := tl.samples
	if !t.After(s[0].t) {
		return s[0].pos
	}
	last := s[len(s)-1]
	if !t.Before(last.t) {
		return last.pos
	}

	i := sort.Search(len(s), func(i int) bool { return s[i].t.After(t) })
	a, b := s[i-1], s[i]
	span := b.t.Sub(a.t)
	if span <= 0 {
		return b.pos
	}
	ratio := float64(t.Sub(a.t)) / float64(span)
	return a.pos.Lerp(b.pos, ratio)
}

// Append adds a sample strictly newer than the current tail and reports
// whether it was added. Samples at or before the tail are dropped so
// out-of-order live updates cannot corrupt the ordering.
func (tl *Timeline) Append(p model.TrackPoint) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	last := tl.samples[len(tl.samples)-1]
	if !p.TimeUTC.After(last.t) {
		return false
	}
	tl.samples = append(tl.samples, timelineSample{
		t:   p.TimeUTC,
		pos: GeodeticToECEF(p.Lat, p.Lon, p.AltKm),
	})
	return true
}

// Span returns the first and last sampled instants.
func (tl *Timeline) Span() (start, stop time.Time) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.samples[0].t, tl.samples[len(tl.samples)-1].t
}

// Len returns the number of stored samples.
func (tl *Timeline) Len() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.samples)
}

// Positions returns a copy of all sampled positions in time order, suitable
// for drawing the track as a polyline.
func (tl *Timeline) Positions() []Vec3 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	out := make([]Vec3, len(tl.samples))
	for i, s := range tl.samples {
		out[i] = s.pos
	}
	return out
}
