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

const DefaultSunriseSunsetURL = "https://api.sunrise-sunset.org/json"

type SunriseSunsetClient struct {
	baseURL string
	client  *http.Client
}

func NewSunriseSunsetClient(baseURL string, timeout time.Duration) *SunriseSunsetClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultSunriseSunsetURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SunriseSunsetClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type sunriseSunsetResponse struct {
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
	Status string `json:"status"`
}

func (c *SunriseSunsetClient) Name() string {
	return "sunrise-sunset"
}

func (c *SunriseSunsetClient) Get(ctx context.Context, at geolocation.Coordinates) (*Data, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("sunrise-sunset base url: %w", err)
	}
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.6f", at.Latitude))
	query.Set("lng", fmt.Sprintf("%.6f", at.Longitude))
	query.Set("formatted", "0")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sunrise-sunset request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sunrise-sunset request failed: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: sunrise-sunset bad status: %s", ErrNetworkFailure, resp.Status)
	}

	var payload sunriseSunsetResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: sunrise-sunset decode: %v", ErrMalformedData, err)
	}

	if payload.Status != "" && payload.Status != "OK" {
		return nil, fmt.Errorf("%w: sunrise-sunset status %s", ErrMalformedData, payload.Status)
	}

	sunrise, err := parseInstant("sunrise", payload.Results.Sunrise)
	if err != nil {
		return nil, err
	}
	sunset, err := parseInstant("sunset", payload.Results.Sunset)
	if err != nil {
		return nil, err
	}

	return &Data{
		Provider:  c.Name(),
		Sunrise:   sunrise,
		Sunset:    sunset,
		FetchedAt: time.Now(),
	}, nil
}

func parseInstant(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s missing", ErrMalformedData, field)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", ErrMalformedData, field, value, err)
	}
	return t, nil
}
