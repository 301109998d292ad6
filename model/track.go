package model

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported by GroundTrack validation.
var (
	// ErrTrackEmpty indicates a track with no samples.
	ErrTrackEmpty = errors.New("ground track is empty")
	// ErrTrackNotSorted indicates samples whose timestamps go backwards.
	ErrTrackNotSorted = errors.New("ground track timestamps must be non-decreasing")
)

// TrackPoint is one timestamped sub-satellite sample: the geodetic point
// directly beneath the satellite plus its altitude above the ellipsoid.
type TrackPoint struct {
	TimeUTC time.Time `json:"time_utc"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	AltKm   float64   `json:"alt_km"`
}

// GroundTrack is an ordered sequence of sub-satellite samples. Timestamps
// must be non-decreasing; duplicates are allowed.
type GroundTrack []TrackPoint

// Validate checks the ordering contract.
func (g GroundTrack) Validate() error {
	if len(g) == 0 {
		return ErrTrackEmpty
	}
	for i := 1; i < len(g); i++ {
		if g[i].TimeUTC.Before(g[i-1].TimeUTC) {
			return fmt.Errorf("%w: sample %d precedes sample %d", ErrTrackNotSorted, i, i-1)
		}
	}
	return nil
}

// First returns the earliest sample. The track must be non-empty.
func (g GroundTrack) First() TrackPoint { return g[0] }

// Last returns the latest sample. The track must be non-empty.
func (g GroundTrack) Last() TrackPoint { return g[len(g)-1] }

// Duration is the time covered from the first to the last sample.
func (g GroundTrack) Duration() time.Duration {
	if len(g) < 2 {
		return 0
	}
	return g.Last().TimeUTC.Sub(g.First().TimeUTC)
}
