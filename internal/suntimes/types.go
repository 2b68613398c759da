// Package suntimes fetches the day's sunrise and sunset for a position
// from public HTTP APIs.
package suntimes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golden-hour/internal/geolocation"
)

var (
	// ErrNetworkFailure covers transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("sun times fetch failed")
	// ErrMalformedData covers undecodable bodies and missing fields.
	ErrMalformedData = errors.New("sun times data malformed")
)

type Provider interface {
	Name() string
	Get(ctx context.Context, at geolocation.Coordinates) (*Data, error)
}

type Data struct {
	Provider  string    `json:"provider"`
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
	FetchedAt time.Time `json:"fetched_at"`
}

// New returns the provider named by name, pointed at baseURL when set.
// apiKey is only used by providers that require one.
func New(name, baseURL, apiKey string, timeout time.Duration) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sunrise-sunset", "sunrisesunset", "sunrise_sunset":
		return NewSunriseSunsetClient(baseURL, timeout), nil
	case "openmeteo", "open-meteo", "open_meteo":
		return NewOpenMeteoClient(baseURL, timeout), nil
	case "openweather", "open-weather", "openweathermap":
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("openweather requires sun.api_key")
		}
		return NewOpenWeatherClient(apiKey, baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("sun times provider not supported: %s", name)
	}
}
