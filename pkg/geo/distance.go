package geo

import "github.com/tidwall/geodesic"

// Distance returns the geodesic distance between a and b in kilometers on
// the WGS-84 ellipsoid. It uses Karney's inverse solution, which converges
// for every pair including nearly antipodal points.
func Distance(a, b Point) float64 {
	if a.Lat == b.Lat && a.Lon == b.Lon {
		return 0
	}
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters / 1000
}
