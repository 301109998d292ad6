package model

// OrbitalElements are the classical elements read from a TLE plus the
// Keplerian quantities derived from the mean motion.
type OrbitalElements struct {
	InclinationDeg       float64 `json:"inclination_deg"`
	RAANDeg              float64 `json:"raan_deg"`
	Eccentricity         float64 `json:"eccentricity"`
	ArgumentOfPerigeeDeg float64 `json:"argument_of_perigee_deg"`
	MeanAnomalyDeg       float64 `json:"mean_anomaly_deg"`
	MeanMotionRevPerDay  float64 `json:"mean_motion_rev_per_day"`
	PeriodMin            float64 `json:"period_min"`
	SemiMajorAxisKm      float64 `json:"semi_major_axis_km"`
	PerigeeAltKm         float64 `json:"perigee_alt_km"`
	ApogeeAltKm          float64 `json:"apogee_alt_km"`
}
