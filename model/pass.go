package model

import "time"

// Pass is one interval during which a satellite stays above an observer's
// elevation threshold. Visible means the observer sky is dark while the
// satellite is sunlit at some point of the pass.
type Pass struct {
	AOS             time.Time `json:"aos_utc"`
	TCA             time.Time `json:"tca_utc"`
	LOS             time.Time `json:"los_utc"`
	MaxElevationDeg float64   `json:"max_elev_deg"`
	DurationS       int       `json:"duration_s"`
	Visible         bool      `json:"visible"`
}

// Duration returns the pass length as a time.Duration.
func (p Pass) Duration() time.Duration {
	return time.Duration(p.DurationS) * time.Second
}
