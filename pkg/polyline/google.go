package polyline

import (
	gpolyline "github.com/twpayne/go-polyline"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// EncodeGoogle encodes points in the Google encoded polyline format with
// five decimal places, the format map widgets render directly.
func EncodeGoogle(points []geo.Point) string {
	if len(points) == 0 {
		return ""
	}
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(gpolyline.EncodeCoords(coords))
}

// DecodeGoogle decodes a Google encoded polyline with five decimal places.
func DecodeGoogle(encoded string) ([]geo.Point, error) {
	if encoded == "" {
		return nil, nil
	}

	coords, rest, err := gpolyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, &DecodeError{Offset: len(encoded) - len(rest), Reason: err.Error()}
	}
	if len(rest) > 0 {
		return nil, &DecodeError{Offset: len(encoded) - len(rest), Reason: "trailing characters"}
	}

	points := make([]geo.Point, len(coords))
	for i, c := range coords {
		points[i] = geo.NewPoint(c[0], c[1])
	}
	return points, nil
}
