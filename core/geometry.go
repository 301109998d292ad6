package core

import (
	"math"

	"github.com/wroge/wgs84"
)

// Vec3 is an Earth-fixed (ECEF) position in metres.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Dot returns the dot product of v and other.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// DistanceTo returns the Euclidean distance between v and other.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Lerp returns the point a fraction t of the way from v to other.
// t is expected in [0, 1]; values outside extrapolate along the chord.
func (v Vec3) Lerp(other Vec3, t float64) Vec3 {
	return Vec3{
		X: v.X + (other.X-v.X)*t,
		Y: v.Y + (other.Y-v.Y)*t,
		Z: v.Z + (other.Z-v.Z)*t,
	}
}

var (
	lonLatToXYZ = wgs84.Transform(wgs84.LonLat(), wgs84.XYZ())
	xyzToLonLat = wgs84.Transform(wgs84.XYZ(), wgs84.LonLat())
)

// GeodeticToECEF converts a geodetic position (degrees, altitude in km above
// the WGS-84 ellipsoid) to an Earth-fixed position in metres.
func GeodeticToECEF(latDeg, lonDeg, altKm float64) Vec3 {
	x, y, z := lonLatToXYZ(lonDeg, latDeg, altKm*1000.0)
	return Vec3{X: x, Y: y, Z: z}
}

// ECEFToGeodetic converts an Earth-fixed position in metres back to geodetic
// degrees and altitude in km above the WGS-84 ellipsoid.
func ECEFToGeodetic(p Vec3) (latDeg, lonDeg, altKm float64) {
	lon, lat, h := xyzToLonLat(p.X, p.Y, p.Z)
	return lat, lon, h / 1000.0
}

// ElevationDegrees computes the elevation angle of a target as seen from an
// observer on the surface. Both positions are Earth-fixed metres. Returns
// +90 when the target is at zenith, negative when below the horizon.
func ElevationDegrees(observer, target Vec3) float64 {
	rangeVec := target.Sub(observer)
	rangeLen := rangeVec.Norm()
	obsLen := observer.Norm()
	if rangeLen == 0 || obsLen == 0 {
		return 90.0
	}

	// The local zenith direction is the normalized observer vector.
	cosGamma := rangeVec.Dot(observer) / (rangeLen * obsLen)
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	return 90.0 - math.Acos(cosGamma)*180.0/math.Pi
}
