package weather

import (
	"errors"
	"time"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// Weather errors.
var (
	ErrNoForecast         = errors.New("no forecast for date")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// DayForecast is the daily forecast at one point.
type DayForecast struct {
	Point geo.Point
	Date  time.Time

	// AvgTempC is the average temperature in Celsius.
	AvgTempC float64

	// TotalSnowCm is the total snowfall in centimetres.
	TotalSnowCm float64

	// TotalPrecipMm is the total precipitation in millimetres.
	TotalPrecipMm float64

	// AvgVisibilityKm is the average visibility in kilometres.
	AvgVisibilityKm float64
}

// Level is an ordinal precipitation bucket.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHeavy  Level = "Heavy"
)

// TemperatureBucket is an ordinal temperature bucket.
type TemperatureBucket string

const (
	TemperatureLow    TemperatureBucket = "low"
	TemperatureMedium TemperatureBucket = "medium"
	TemperatureHigh   TemperatureBucket = "high"
)

// Summary is the weather along a route for one date, averaged over every
// point that returned a forecast.
type Summary struct {
	AvgTempC        float64
	AvgSnowCm       float64
	AvgPrecipMm     float64
	AvgVisibilityKm float64

	Rain Level
	Snow Level

	// Points is the number of points that contributed.
	Points int

	// Queried is the number of points that were asked for.
	Queried int
}

// Temperature returns the temperature bucket of the average temperature.
func (s Summary) Temperature() TemperatureBucket {
	return ClassifyTemperature(s.AvgTempC)
}

// DefaultSummary is returned when no point produced data.
func DefaultSummary(queried int) Summary {
	return Summary{Rain: LevelLow, Snow: LevelLow, Queried: queried}
}

// ClassifySnow buckets average snowfall, downgrading light snow only when
// visibility is poor.
func ClassifySnow(snowCm, visibilityKm float64) Level {
	switch {
	case snowCm <= 0.1:
		return LevelLow
	case snowCm <= 2.5:
		if visibilityKm >= 1.0 {
			return LevelLow
		}
		return LevelMedium
	case snowCm <= 10:
		if visibilityKm >= 0.8 {
			return LevelMedium
		}
		return LevelHeavy
	default:
		return LevelHeavy
	}
}

// ClassifyRain buckets average daily precipitation.
func ClassifyRain(precipMm float64) Level {
	switch {
	case precipMm <= 5.0:
		return LevelLow
	case precipMm <= 15.0:
		return LevelMedium
	default:
		return LevelHeavy
	}
}

// ClassifyTemperature buckets an average temperature in Celsius.
func ClassifyTemperature(tempC float64) TemperatureBucket {
	switch {
	case tempC > 30:
		return TemperatureHigh
	case tempC > 20:
		return TemperatureMedium
	default:
		return TemperatureLow
	}
}
