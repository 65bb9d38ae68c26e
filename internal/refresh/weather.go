package refresh

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/models"
	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
)

// WeatherFetcher refreshes the reading of every configured location in order.
// Each location is written independently:
//   - a non-2xx answer stores the placeholder reading,
//   - a non-JSON answer or an unusable body keeps the previous reading,
//   - a transport error keeps the previous reading.
//
// One location failing never stops the loop.
type WeatherFetcher struct {
	client    client.WeatherClient
	store     *cache.Store
	locations []models.Location
	logger    *zap.Logger
}

// NewWeatherFetcher creates a WeatherFetcher for locations.
func NewWeatherFetcher(c client.WeatherClient, store *cache.Store, locations []models.Location, logger *zap.Logger) *WeatherFetcher {
	return &WeatherFetcher{client: c, store: store, locations: locations, logger: loggerOrNop(logger)}
}

func (f *WeatherFetcher) Name() string { return FetcherWeather }

// Fetch implements Fetcher.
func (f *WeatherFetcher) Fetch(ctx context.Context) error {
	c := &cycle{fetcher: FetcherWeather}
	for _, loc := range f.locations {
		if ctx.Err() != nil {
			c.fail(ctx.Err())
			break
		}
		if err := f.fetchOne(ctx, loc); err != nil {
			c.fail(err)
			continue
		}
		c.ok()
	}
	return c.err()
}

func (f *WeatherFetcher) fetchOne(ctx context.Context, loc models.Location) error {
	log := f.logger.With(zap.String("location", loc.Name))

	reading, err := f.client.GetForecast(ctx, loc)
	var statusErr *client.StatusError
	switch {
	case err == nil:
		if err := f.store.PutWeather(ctx, reading); err != nil {
			log.Error("weather store failed", zap.Error(err))
			return fmt.Errorf("%s: %w", loc.Name, err)
		}
		return nil
	case errors.As(err, &statusErr):
		log.Warn("forecast returned non-2xx, storing placeholder", zap.Int("status", statusErr.StatusCode))
		observability.WeatherPlaceholdersTotal.WithLabelValues(loc.Name).Inc()
		if perr := f.store.PutWeather(ctx, models.PlaceholderReading(loc.Name)); perr != nil {
			log.Error("weather store failed", zap.Error(perr))
		}
	case errors.Is(err, client.ErrUnexpectedContentType):
		log.Warn("forecast is not JSON, keeping previous reading", zap.Error(err))
	default:
		log.Warn("forecast fetch failed, keeping previous reading", zap.Error(err))
	}
	return fmt.Errorf("%s: %w", loc.Name, err)
}
