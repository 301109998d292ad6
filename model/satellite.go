package model

// Satellite identifies one trackable object. TLE lines and the source URL
// are optional: when empty, the propagation backend resolves the element set
// by catalog number from its default source.
type Satellite struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	NoradID int    `json:"norad_id"`
	TLEURL  string `json:"tle_url,omitempty"`
	TLE1    string `json:"tle1,omitempty"`
	TLE2    string `json:"tle2,omitempty"`
}

// HasTLE reports whether the satellite carries a pinned element set.
func (s Satellite) HasTLE() bool { return s.TLE1 != "" && s.TLE2 != "" }

// DisplayName returns the human label for the satellite, falling back to the
// registry ID when no name is set.
func (s Satellite) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
