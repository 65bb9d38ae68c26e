package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PlaceholderSymbolCode is stored as the condition code when the forecast
// provider answers a location with a non-2xx status.
const PlaceholderSymbolCode SymbolCode = "0"

// SymbolCode is a forecast condition token such as "partlycloudy_day".
// The placeholder encodes as the JSON number 0, every other code as a string.
type SymbolCode string

func (c SymbolCode) MarshalJSON() ([]byte, error) {
	if c == PlaceholderSymbolCode {
		return []byte("0"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts both encodings written by MarshalJSON.
func (c *SymbolCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("symbol code: %w", err)
		}
		*c = SymbolCode(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("symbol code: %w", err)
	}
	*c = SymbolCode(s)
	return nil
}

// Location is a named coordinate pair polled by the weather fetcher.
type Location struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

// WeatherReading is the latest forecast snapshot for one location.
type WeatherReading struct {
	Name        string     `json:"name"`
	Temperature float64    `json:"temperature"`
	SymbolCode  SymbolCode `json:"symbolCode"`
}

// PlaceholderReading returns the zero-valued reading recorded for a location
// whose forecast call failed with an HTTP status.
func PlaceholderReading(name string) WeatherReading {
	return WeatherReading{Name: name, Temperature: 0, SymbolCode: PlaceholderSymbolCode}
}

// WeatherSummary is the per-location body of GET /weather/{location}.
type WeatherSummary struct {
	Temperature float64    `json:"temperature"`
	SymbolCode  SymbolCode `json:"symbolCode"`
}

// Summary drops the location name.
func (r WeatherReading) Summary() WeatherSummary {
	return WeatherSummary{Temperature: r.Temperature, SymbolCode: r.SymbolCode}
}
