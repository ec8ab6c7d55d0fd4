package here

import "math"

// HERE Geocoding & Search v7 and Routing v8 response subsets.

type position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Items []geocodeItem `json:"items"`
}

type geocodeItem struct {
	Title    string    `json:"title"`
	Position *position `json:"position"`
}

type routesResponse struct {
	Routes []hereRoute `json:"routes"`
}

type hereRoute struct {
	ID       string        `json:"id"`
	Sections []hereSection `json:"sections"`
}

type hereSection struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Polyline string `json:"polyline"`
}

type discoverResponse struct {
	Items []discoverItem `json:"items"`
}

// discoverItem fields are pointers because HERE omits them for some
// results. A missing distance ranks last.
type discoverItem struct {
	Title    string    `json:"title"`
	Position *position `json:"position"`
	Distance *float64  `json:"distance"`
}

func (d discoverItem) distance() float64 {
	if d.Distance == nil {
		return math.Inf(1)
	}
	return *d.Distance
}
