// Package propagator implements the orbit-propagation backend the viewer
// polls: SGP4 propagation from TLE element sets, ground-track and orbit-path
// sampling, TLE-derived orbital elements, and pass prediction, exposed over
// JSON/HTTP by Server.
package propagator

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/model"
)

const kmToM = 1000.0

// Propagator propagates a single satellite from its TLE element set.
type Propagator struct {
	sat satellite.Satellite
}

// New builds a propagator from TLE lines. Lines are pre-validated because the
// underlying library terminates the process on malformed input.
func New(tle1, tle2 string) (*Propagator, error) {
	if err := validateTLELines(tle1, tle2); err != nil {
		return nil, fmt.Errorf("invalid TLE: %w", err)
	}
	sat := satellite.TLEToSat(strings.TrimSpace(tle1), strings.TrimSpace(tle2), satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat}, nil
}

func validateTLELines(tle1, tle2 string) error {
	tle1 = strings.TrimSpace(tle1)
	tle2 = strings.TrimSpace(tle2)
	if len(tle1) != 69 {
		return fmt.Errorf("line 1 length %d, expected 69", len(tle1))
	}
	if len(tle2) != 69 {
		return fmt.Errorf("line 2 length %d, expected 69", len(tle2))
	}
	if tle1[0] != '1' {
		return fmt.Errorf("line 1 must start with '1'")
	}
	if tle2[0] != '2' {
		return fmt.Errorf("line 2 must start with '2'")
	}
	return nil
}

// ECI returns the inertial position (km) and velocity (km/s) at t.
func (p *Propagator) ECI(t time.Time) (pos, vel model.Cartesian, err error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, velECI := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	if !finiteVector(posECI) || !finiteVector(velECI) {
		return model.Cartesian{}, model.Cartesian{}, fmt.Errorf("propagation to %s produced a non-finite state", t.Format(time.RFC3339))
	}
	pos = model.Cartesian{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
	vel = model.Cartesian{X: velECI.X, Y: velECI.Y, Z: velECI.Z}
	return pos, vel, nil
}

// ECEF returns the Earth-fixed position in metres at t.
func (p *Propagator) ECEF(t time.Time) (core.Vec3, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	if !finiteVector(posECI) {
		return core.Vec3{}, fmt.Errorf("propagation to %s produced a non-finite state", t.Format(time.RFC3339))
	}
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)
	return core.Vec3{X: posECEF.X * kmToM, Y: posECEF.Y * kmToM, Z: posECEF.Z * kmToM}, nil
}

// Subpoint returns the geodetic point beneath the satellite at t, using the
// same WGS-84 conversion the viewer applies when building timelines.
func (p *Propagator) Subpoint(t time.Time) (model.TrackPoint, error) {
	ecef, err := p.ECEF(t)
	if err != nil {
		return model.TrackPoint{}, err
	}
	lat, lon, altKm := core.ECEFToGeodetic(ecef)
	return model.TrackPoint{
		TimeUTC: t.UTC().Truncate(time.Second),
		Lat:     lat,
		Lon:     lon,
		AltKm:   altKm,
	}, nil
}

// GroundTrack samples subpoints from start over the window at the given step.
// Sampling is boundary-inclusive: both the start and the instant start+window
// are sampled, so a 90 min window at 30 s yields 181 points.
func (p *Propagator) GroundTrack(start time.Time, window, step time.Duration) (model.GroundTrack, error) {
	if window <= 0 || step <= 0 {
		return nil, fmt.Errorf("window and step must be positive")
	}
	end := start.Add(window)
	track := make(model.GroundTrack, 0, int(window/step)+1)
	for t := start; !t.After(end); t = t.Add(step) {
		point, err := p.Subpoint(t)
		if err != nil {
			return nil, err
		}
		track = append(track, point)
	}
	return track, nil
}

// OrbitPath samples subpoints across whole orbital periods, for drawing a
// full-orbit polyline whose altitude shows the orbit's eccentricity. steps
// points are spread evenly over periods orbital periods starting at start.
func (p *Propagator) OrbitPath(start time.Time, periodMin float64, steps int, periods float64) (model.GroundTrack, error) {
	if steps < 2 {
		return nil, fmt.Errorf("steps must be at least 2")
	}
	if periodMin <= 0 || periods <= 0 {
		return nil, fmt.Errorf("period and periods must be positive")
	}

	total := time.Duration(periodMin * periods * float64(time.Minute))
	track := make(model.GroundTrack, 0, steps)
	for i := 0; i < steps; i++ {
		t := start.Add(total * time.Duration(i) / time.Duration(steps-1))
		point, err := p.Subpoint(t)
		if err != nil {
			return nil, err
		}
		track = append(track, point)
	}
	return track, nil
}

func finiteVector(v satellite.Vector3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
