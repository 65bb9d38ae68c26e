package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/models"
)

// WeatherClient fetches the current forecast for a location.
type WeatherClient interface {
	GetForecast(ctx context.Context, loc models.Location) (models.WeatherReading, error)
}

// MetClient talks to the met.no locationforecast compact endpoint.
// met.no rejects requests without an identifying User-Agent.
type MetClient struct {
	up *upstream
}

func NewMetClient(apiURL, userAgent string, timeout time.Duration) (*MetClient, error) {
	up, err := newUpstream(ProviderWeather, apiURL, userAgent, timeout)
	if err != nil {
		return nil, err
	}
	return &MetClient{up: up}, nil
}

type metForecast struct {
	Properties *struct {
		Timeseries []struct {
			Time string `json:"time"`
			Data struct {
				Instant struct {
					Details struct {
						AirTemperature *float64 `json:"air_temperature"`
					} `json:"details"`
				} `json:"instant"`
				Next1Hours *struct {
					Summary struct {
						SymbolCode string `json:"symbol_code"`
					} `json:"summary"`
				} `json:"next_1_hours"`
			} `json:"data"`
		} `json:"timeseries"`
	} `json:"properties"`
}

// GetForecast returns the first time-series entry for loc. A non-2xx reply
// yields *StatusError, a non-JSON reply ErrUnexpectedContentType, and a body
// without temperature or symbol code a *ParseError.
func (c *MetClient) GetForecast(ctx context.Context, loc models.Location) (models.WeatherReading, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))

	resp, err := c.up.get(ctx, params, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return models.WeatherReading{}, c.up.fail(err)
	}
	if err := c.up.checkStatus(resp); err != nil {
		return models.WeatherReading{}, c.up.fail(err)
	}
	if !resp.IsJSON() {
		return models.WeatherReading{}, c.up.fail(fmt.Errorf("%w: expected JSON but received %q", ErrUnexpectedContentType, resp.ContentType))
	}
	reading, err := parseMetForecast(loc.Name, resp.Body)
	if err != nil {
		return models.WeatherReading{}, c.up.fail(err)
	}
	return reading, nil
}

func parseMetForecast(name string, body []byte) (models.WeatherReading, error) {
	var f metForecast
	if err := json.Unmarshal(body, &f); err != nil {
		return models.WeatherReading{}, &ParseError{Provider: ProviderWeather, Err: err}
	}
	if f.Properties == nil {
		return models.WeatherReading{}, missingField(ProviderWeather, "properties")
	}
	if len(f.Properties.Timeseries) == 0 {
		return models.WeatherReading{}, missingField(ProviderWeather, "properties.timeseries")
	}
	first := f.Properties.Timeseries[0].Data
	if first.Instant.Details.AirTemperature == nil {
		return models.WeatherReading{}, missingField(ProviderWeather, "data.instant.details.air_temperature")
	}
	if first.Next1Hours == nil || first.Next1Hours.Summary.SymbolCode == "" {
		return models.WeatherReading{}, missingField(ProviderWeather, "data.next_1_hours.summary.symbol_code")
	}
	return models.WeatherReading{
		Name:        name,
		Temperature: *first.Instant.Details.AirTemperature,
		SymbolCode:  models.SymbolCode(first.Next1Hours.Summary.SymbolCode),
	}, nil
}
