package weather_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dieselroute/dieselroute/internal/weather"
)

func TestClassifySnow(t *testing.T) {
	tests := []struct {
		name       string
		snow       float64
		visibility float64
		expected   weather.Level
	}{
		{"none", 0, 10, weather.LevelLow},
		{"trace boundary", 0.1, 0.1, weather.LevelLow},
		{"light with good visibility", 2.0, 1.0, weather.LevelLow},
		{"light with poor visibility", 2.0, 0.9, weather.LevelMedium},
		{"light boundary poor visibility", 2.5, 0.5, weather.LevelMedium},
		{"moderate with good visibility", 5.0, 0.8, weather.LevelMedium},
		{"moderate with poor visibility", 5.0, 0.7, weather.LevelHeavy},
		{"moderate boundary", 10.0, 2.0, weather.LevelMedium},
		{"heavy regardless of visibility", 10.1, 10, weather.LevelHeavy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, weather.ClassifySnow(tt.snow, tt.visibility))
		})
	}
}

func TestClassifyRain(t *testing.T) {
	tests := []struct {
		precip   float64
		expected weather.Level
	}{
		{0, weather.LevelLow},
		{0.1, weather.LevelLow},
		{5.0, weather.LevelLow},
		{5.01, weather.LevelMedium},
		{15.0, weather.LevelMedium},
		{15.5, weather.LevelHeavy},
		{80, weather.LevelHeavy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, weather.ClassifyRain(tt.precip), "precip %v", tt.precip)
	}
}

func TestClassifyTemperature(t *testing.T) {
	assert.Equal(t, weather.TemperatureLow, weather.ClassifyTemperature(-5))
	assert.Equal(t, weather.TemperatureLow, weather.ClassifyTemperature(20))
	assert.Equal(t, weather.TemperatureMedium, weather.ClassifyTemperature(20.5))
	assert.Equal(t, weather.TemperatureMedium, weather.ClassifyTemperature(30))
	assert.Equal(t, weather.TemperatureHigh, weather.ClassifyTemperature(30.1))
}

func TestDefaultSummary(t *testing.T) {
	s := weather.DefaultSummary(15)

	assert.Zero(t, s.AvgTempC)
	assert.Equal(t, weather.LevelLow, s.Rain)
	assert.Equal(t, weather.LevelLow, s.Snow)
	assert.Equal(t, weather.TemperatureLow, s.Temperature())
	assert.Zero(t, s.Points)
	assert.Equal(t, 15, s.Queried)
}
