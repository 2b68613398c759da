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

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoClient reads sunrise and sunset from Open-Meteo's daily
// forecast. Times come back as local wall-clock values in the
// location's timezone.
type OpenMeteoClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewOpenMeteoClient(baseURL string, timeout time.Duration) *OpenMeteoClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (c *OpenMeteoClient) Name() string {
	return "open-meteo"
}

func (c *OpenMeteoClient) Get(ctx context.Context, at geolocation.Coordinates) (*Data, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("open-meteo base url: %w", err)
	}
	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", at.Latitude))
	query.Set("longitude", fmt.Sprintf("%.6f", at.Longitude))
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "1")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: open-meteo request failed: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: open-meteo bad status: %s", ErrNetworkFailure, resp.Status)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: open-meteo decode: %v", ErrMalformedData, err)
	}

	loc := openMeteoLocation(payload.Timezone)
	sunrise, sunset, ok := pickOpenMeteoSunTimes(c.now().In(loc), loc, payload.Daily.Sunrise, payload.Daily.Sunset)
	if !ok {
		return nil, fmt.Errorf("%w: open-meteo daily sunrise/sunset missing", ErrMalformedData)
	}

	return &Data{
		Provider:  c.Name(),
		Sunrise:   sunrise,
		Sunset:    sunset,
		FetchedAt: c.now(),
	}, nil
}

func openMeteoLocation(timezone string) *time.Location {
	if strings.TrimSpace(timezone) != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

func parseOpenMeteoTime(value string, loc *time.Location) time.Time {
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

// pickOpenMeteoSunTimes returns the pair dated today in loc, or the
// first parseable pair when none matches.
func pickOpenMeteoSunTimes(now time.Time, loc *time.Location, sunrises, sunsets []string) (time.Time, time.Time, bool) {
	count := len(sunrises)
	if len(sunsets) < count {
		count = len(sunsets)
	}

	var firstRise, firstSet time.Time
	for i := 0; i < count; i++ {
		sunrise := parseOpenMeteoTime(sunrises[i], loc)
		sunset := parseOpenMeteoTime(sunsets[i], loc)
		if sunrise.IsZero() || sunset.IsZero() {
			continue
		}
		if sameDate(now, sunrise) {
			return sunrise, sunset, true
		}
		if firstRise.IsZero() {
			firstRise, firstSet = sunrise, sunset
		}
	}
	return firstRise, firstSet, !firstRise.IsZero()
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
