package weather

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// Forecast returns the daily forecast at point for date, or
	// ErrNoForecast when the provider has no entry for that date.
	Forecast(ctx context.Context, point geo.Point, date time.Time) (*DayForecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service summarizes weather along a route.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Summarize queries points one after another and averages the forecasts
// for date. A point that fails is logged and skipped. When nothing comes
// back the result is DefaultSummary.
func (s *Service) Summarize(ctx context.Context, points []geo.Point, date time.Time) Summary {
	var (
		tempSum, snowSum, precipSum, visSum float64
		valid                               int
	)

	for i, p := range points {
		if ctx.Err() != nil {
			s.logger.Warn().Err(ctx.Err()).Int("remaining", len(points)-i).Msg("weather summary interrupted")
			break
		}
		if !p.Valid() {
			s.logger.Warn().Float64("lat", p.Lat).Float64("lon", p.Lon).Msg("skipping invalid weather point")
			continue
		}

		f, err := s.provider.Forecast(ctx, p, date)
		if err != nil {
			evt := s.logger.Warn()
			if errors.Is(err, ErrNoForecast) {
				evt = s.logger.Debug()
			}
			evt.Err(err).
				Float64("lat", p.Lat).
				Float64("lon", p.Lon).
				Str("provider", s.provider.Name()).
				Msg("no weather for point")
			continue
		}

		tempSum += f.AvgTempC
		snowSum += f.TotalSnowCm
		precipSum += f.TotalPrecipMm
		visSum += f.AvgVisibilityKm
		valid++
	}

	if valid == 0 {
		s.logger.Warn().Int("points", len(points)).Msg("no weather data collected, using defaults")
		return DefaultSummary(len(points))
	}

	n := float64(valid)
	summary := Summary{
		AvgTempC:        tempSum / n,
		AvgSnowCm:       snowSum / n,
		AvgPrecipMm:     precipSum / n,
		AvgVisibilityKm: visSum / n,
		Points:          valid,
		Queried:         len(points),
	}
	summary.Rain = ClassifyRain(summary.AvgPrecipMm)
	summary.Snow = ClassifySnow(summary.AvgSnowCm, summary.AvgVisibilityKm)

	s.logger.Info().
		Int("points", valid).
		Int("queried", len(points)).
		Float64("avg_temp_c", summary.AvgTempC).
		Str("rain", string(summary.Rain)).
		Str("snow", string(summary.Snow)).
		Msg("summarized route weather")

	return summary
}
