package model

// Cartesian is a plain xyz triple. Units are set by the field carrying it;
// backend payloads use kilometres.
type Cartesian struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
