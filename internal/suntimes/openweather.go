package suntimes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golden-hour/internal/geolocation"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherClient reads today's sunrise and sunset from the sys block
// of OpenWeather's current weather endpoint. It needs an API key.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) *OpenWeatherClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenWeatherURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

type openWeatherResponse struct {
	Timezone int `json:"timezone"`
	Sys      struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (c *OpenWeatherClient) Name() string {
	return "openweather"
}

func (c *OpenWeatherClient) Get(ctx context.Context, at geolocation.Coordinates) (*Data, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("openweather base url: %w", err)
	}
	query := url.Values{}
	query.Set("appid", c.apiKey)
	query.Set("lat", fmt.Sprintf("%.6f", at.Latitude))
	query.Set("lon", fmt.Sprintf("%.6f", at.Longitude))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openweather request failed: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: openweather bad status: %s", ErrNetworkFailure, resp.Status)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: openweather decode: %v", ErrMalformedData, err)
	}
	if payload.Sys.Sunrise == 0 || payload.Sys.Sunset == 0 {
		return nil, fmt.Errorf("%w: openweather sys.sunrise/sys.sunset missing", ErrMalformedData)
	}

	// Unix instants; the zone only matters for logging and display.
	zone := time.FixedZone("", payload.Timezone)
	return &Data{
		Provider:  c.Name(),
		Sunrise:   time.Unix(payload.Sys.Sunrise, 0).In(zone),
		Sunset:    time.Unix(payload.Sys.Sunset, 0).In(zone),
		FetchedAt: c.now(),
	}, nil
}
