package propagator

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/model"
)

// Observer is a ground position passes are predicted for.
type Observer struct {
	LatDeg float64
	LonDeg float64
	AltKm  float64
}

// PassOptions bound a pass scan.
type PassOptions struct {
	Hours           int
	StepS           int
	MinElevationDeg float64
}

func (o PassOptions) withDefaults() PassOptions {
	if o.Hours <= 0 {
		o.Hours = 24
	}
	if o.StepS <= 0 {
		o.StepS = 10
	}
	if o.MinElevationDeg < 0 {
		o.MinElevationDeg = 0
	}
	return o
}

// Passes scans elevation from the observer over the horizon window and
// returns every interval the satellite stays above the threshold. Each
// interval carries AOS, the peak-elevation instant (TCA), and LOS. Visible is
// set when the scan's crude twilight heuristic says the observer sky is dark
// at the peak; it errs conservative and never claims visibility in daylight.
func (p *Propagator) Passes(start time.Time, obs Observer, opts PassOptions) ([]model.Pass, error) {
	opts = opts.withDefaults()
	observerECEF := core.GeodeticToECEF(obs.LatDeg, obs.LonDeg, obs.AltKm)

	step := time.Duration(opts.StepS) * time.Second
	horizon := start.Add(time.Duration(opts.Hours) * time.Hour)

	var passes []model.Pass
	var open bool
	var aos, tca time.Time
	var maxElev float64

	closeWindow := func(los time.Time) {
		passes = append(passes, model.Pass{
			AOS:             aos,
			TCA:             tca,
			LOS:             los,
			MaxElevationDeg: maxElev,
			DurationS:       int(los.Sub(aos) / time.Second),
			Visible:         observerInDarkness(tca, obs),
		})
		open = false
	}

	for t := start; !t.After(horizon); t = t.Add(step) {
		satECEF, err := p.ECEF(t)
		if err != nil {
			return nil, fmt.Errorf("sampling pass window: %w", err)
		}
		elev := core.ElevationDegrees(observerECEF, satECEF)

		if elev >= opts.MinElevationDeg {
			if !open {
				open = true
				aos = t
				tca = t
				maxElev = elev
			} else if elev > maxElev {
				maxElev = elev
				tca = t
			}
			continue
		}
		if open {
			closeWindow(t)
		}
	}
	if open {
		closeWindow(horizon)
	}
	return passes, nil
}

// observerInDarkness approximates solar elevation at the observer from the
// solar declination and hour angle, and reports civil darkness (sun more
// than 6 degrees below the horizon). Good to a degree or two, which is
// enough for a visibility hint.
func observerInDarkness(t time.Time, obs Observer) bool {
	t = t.UTC()
	dayOfYear := float64(t.YearDay())
	fracHours := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600

	// Solar declination (Cooper's equation) and equation-of-time-free hour
	// angle from mean solar time at the observer's longitude.
	decl := -23.44 * math.Cos(2*math.Pi/365.0*(dayOfYear+10)) * math.Pi / 180
	solarHours := fracHours + obs.LonDeg/15.0
	hourAngle := (solarHours - 12) * 15 * math.Pi / 180

	lat := obs.LatDeg * math.Pi / 180
	sinElev := math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(hourAngle)
	return sinElev < math.Sin(-6*math.Pi/180)
}
