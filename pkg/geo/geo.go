// Package geo provides the geographic point type and the distance math used
// to measure routes.
package geo

import (
	"math"
	"strconv"
)

// Point is an immutable geographic position. Z carries the optional third
// dimension (altitude, elevation or level) and is only meaningful when HasZ is set.
type Point struct {
	Lat  float64
	Lon  float64
	Z    float64
	HasZ bool
}

// NewPoint returns a two-dimensional point.
func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

// WithZ returns a copy of p carrying a third dimension.
func (p Point) WithZ(z float64) Point {
	p.Z = z
	p.HasZ = true
	return p
}

// Valid reports whether the latitude and longitude are in range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// IsZero reports whether p is the (0,0) null island placeholder.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// LatLon formats the point as "lat,lon", the order most provider query strings expect.
func (p Point) LatLon() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// LonLat formats the point as "lon,lat".
func (p Point) LonLat() string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// PathLength returns the summed geodesic length of consecutive points in kilometers.
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
