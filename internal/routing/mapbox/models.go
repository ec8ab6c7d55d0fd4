package mapbox

import "encoding/json"

// Mapbox Directions v5 response subset.
type directionsResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance        float64         `json:"distance"`
	Duration        float64         `json:"duration"`
	DurationTypical *float64        `json:"duration_typical"`
	Geometry        json.RawMessage `json:"geometry"`
	Legs            []leg           `json:"legs"`
}

type leg struct {
	Distance float64 `json:"distance"`
	Steps    []step  `json:"steps"`
}

type step struct {
	Distance      float64        `json:"distance"`
	Name          string         `json:"name"`
	Ref           string         `json:"ref"`
	Classes       []string       `json:"classes"`
	Intersections []intersection `json:"intersections"`
}

type intersection struct {
	Classes []string `json:"classes"`
}
