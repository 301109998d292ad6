package propagator

import (
	"testing"
	"time"
)

func TestPassesProduceOrderedWindows(t *testing.T) {
	p := newISSPropagator(t)
	obs := Observer{LatDeg: 45, LonDeg: 0}

	passes, err := p.Passes(testEpoch, obs, PassOptions{Hours: 24, StepS: 30, MinElevationDeg: 10})
	if err != nil {
		t.Fatalf("Passes: %v", err)
	}
	if len(passes) == 0 {
		t.Fatalf("no ISS passes over 45N in 24h, want at least one")
	}

	prevLOS := time.Time{}
	for i, pass := range passes {
		if pass.AOS.After(pass.TCA) || pass.TCA.After(pass.LOS) {
			t.Fatalf("pass %d not ordered: AOS=%v TCA=%v LOS=%v", i, pass.AOS, pass.TCA, pass.LOS)
		}
		if pass.MaxElevationDeg < 10 {
			t.Fatalf("pass %d max elevation = %.1f, want >= 10", i, pass.MaxElevationDeg)
		}
		if pass.DurationS <= 0 || pass.DurationS > 15*60 {
			t.Fatalf("pass %d duration = %ds, want within (0, 15min]", i, pass.DurationS)
		}
		if !pass.AOS.After(prevLOS) {
			t.Fatalf("pass %d overlaps the previous one", i)
		}
		prevLOS = pass.LOS
	}
}

func TestHigherThresholdYieldsFewerPasses(t *testing.T) {
	p := newISSPropagator(t)
	obs := Observer{LatDeg: 45, LonDeg: 0}

	low, err := p.Passes(testEpoch, obs, PassOptions{Hours: 24, StepS: 30, MinElevationDeg: 5})
	if err != nil {
		t.Fatalf("Passes low: %v", err)
	}
	high, err := p.Passes(testEpoch, obs, PassOptions{Hours: 24, StepS: 30, MinElevationDeg: 60})
	if err != nil {
		t.Fatalf("Passes high: %v", err)
	}
	if len(high) > len(low) {
		t.Fatalf("60 degree threshold produced %d passes, 5 degree produced %d", len(high), len(low))
	}
	for i, pass := range high {
		if pass.MaxElevationDeg < 60 {
			t.Fatalf("high pass %d max elevation = %.1f, want >= 60", i, pass.MaxElevationDeg)
		}
	}
}

func TestPassOptionsDefaults(t *testing.T) {
	got := PassOptions{}.withDefaults()
	if got.Hours != 24 || got.StepS != 10 || got.MinElevationDeg != 0 {
		t.Fatalf("defaults = %+v, want 24h/10s/0deg", got)
	}
	kept := PassOptions{Hours: 6, StepS: 5, MinElevationDeg: 30}.withDefaults()
	if kept.Hours != 6 || kept.StepS != 5 || kept.MinElevationDeg != 30 {
		t.Fatalf("explicit options changed: %+v", kept)
	}
}

func TestObserverInDarkness(t *testing.T) {
	solstice := time.Date(2021, 6, 21, 12, 0, 0, 0, time.UTC)
	equatorNoon := Observer{LatDeg: 0, LonDeg: 0}
	if observerInDarkness(solstice, equatorNoon) {
		t.Fatalf("equator at local noon reported dark")
	}

	midnight := time.Date(2021, 6, 21, 0, 0, 0, 0, time.UTC)
	if !observerInDarkness(midnight, equatorNoon) {
		t.Fatalf("equator at local midnight reported lit")
	}

	// Polar summer: no civil darkness at 78N in late June.
	arctic := Observer{LatDeg: 78, LonDeg: 15}
	for hour := 0; hour < 24; hour += 3 {
		at := time.Date(2021, 6, 21, hour, 0, 0, 0, time.UTC)
		if observerInDarkness(at, arctic) {
			t.Fatalf("midnight-sun latitude reported dark at %02d:00 UTC", hour)
		}
	}
}
