package propagator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/orbitview/model"
)

// Gravitational parameter and equatorial radius used for the Keplerian
// derivations, matching the values the backend API documents.
const (
	muEarthKm3S2  = 398600.4418
	earthRadiusKm = 6378.137
)

// ElementsFromTLE reads the classical orbital elements straight out of the
// TLE's fixed columns and derives period, semi-major axis, and apsis
// altitudes from the mean motion via Kepler's third law.
func ElementsFromTLE(tle1, tle2 string) (model.OrbitalElements, time.Time, error) {
	if err := validateTLELines(tle1, tle2); err != nil {
		return model.OrbitalElements{}, time.Time{}, fmt.Errorf("invalid TLE: %w", err)
	}
	tle1 = strings.TrimSpace(tle1)
	tle2 = strings.TrimSpace(tle2)

	epoch, err := parseTLEEpoch(tle1[18:32])
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, fmt.Errorf("parsing epoch: %w", err)
	}

	inclination, err := tleFloat(tle2[8:16], "inclination")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	raan, err := tleFloat(tle2[17:25], "raan")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	// Eccentricity is printed without its leading decimal point.
	eccentricity, err := tleFloat("0."+strings.TrimSpace(tle2[26:33]), "eccentricity")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	argPerigee, err := tleFloat(tle2[34:42], "argument of perigee")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	meanAnomaly, err := tleFloat(tle2[43:51], "mean anomaly")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	meanMotion, err := tleFloat(tle2[52:63], "mean motion")
	if err != nil {
		return model.OrbitalElements{}, time.Time{}, err
	}
	if meanMotion <= 0 {
		return model.OrbitalElements{}, time.Time{}, fmt.Errorf("mean motion must be positive, got %v", meanMotion)
	}

	periodMin := 1440.0 / meanMotion
	nRadS := meanMotion * 2 * math.Pi / 86400.0
	semiMajorKm := math.Cbrt(muEarthKm3S2 / (nRadS * nRadS))
	perigeeAltKm := semiMajorKm*(1-eccentricity) - earthRadiusKm
	apogeeAltKm := semiMajorKm*(1+eccentricity) - earthRadiusKm

	return model.OrbitalElements{
		InclinationDeg:       inclination,
		RAANDeg:              raan,
		Eccentricity:         eccentricity,
		ArgumentOfPerigeeDeg: argPerigee,
		MeanAnomalyDeg:       meanAnomaly,
		MeanMotionRevPerDay:  meanMotion,
		PeriodMin:            periodMin,
		SemiMajorAxisKm:      semiMajorKm,
		PerigeeAltKm:         perigeeAltKm,
		ApogeeAltKm:          apogeeAltKm,
	}, epoch, nil
}

// parseTLEEpoch decodes the two-digit-year day-of-year epoch field. Years
// 57-99 belong to the 1900s per the TLE convention.
func parseTLEEpoch(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	if len(field) < 5 {
		return time.Time{}, fmt.Errorf("epoch field %q too short", field)
	}
	year, err := strconv.Atoi(field[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year %q: %w", field[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	dayOfYear, err := strconv.ParseFloat(field[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day %q: %w", field[2:], err)
	}

	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	// Day-of-year is 1-based.
	return yearStart.Add(time.Duration((dayOfYear - 1) * 24 * float64(time.Hour))).Truncate(time.Second), nil
}

func tleFloat(field, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", name, field, err)
	}
	return v, nil
}
