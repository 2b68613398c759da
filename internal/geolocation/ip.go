package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultIPEndpoint = "https://ipapi.co/json/"

// IPLocator approximates the position from the caller's public IP.
type IPLocator struct {
	endpoint string
	client   *http.Client
}

func NewIPLocator(endpoint string) *IPLocator {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultIPEndpoint
	}
	return &IPLocator{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type ipLookupResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Locate asks the lookup service for coordinates. Any failure is
// reported as a denial; the session does not retry.
func (l *IPLocator) Locate(ctx context.Context) (Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: ip lookup request: %v", ErrPermissionDenied, err)
	}
	req.Header.Set("User-Agent", "golden-hour/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: ip lookup failed: %v", ErrPermissionDenied, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinates{}, fmt.Errorf("%w: ip lookup bad status: %s", ErrPermissionDenied, resp.Status)
	}

	var payload ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinates{}, fmt.Errorf("%w: ip lookup decode: %v", ErrPermissionDenied, err)
	}
	if payload.Error {
		return Coordinates{}, fmt.Errorf("%w: ip lookup: %s", ErrPermissionDenied, payload.Reason)
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return Coordinates{}, fmt.Errorf("%w: ip lookup returned no position", ErrPermissionDenied)
	}

	coords := Coordinates{Latitude: *payload.Latitude, Longitude: *payload.Longitude}
	if !coords.Valid() {
		return Coordinates{}, fmt.Errorf("%w: ip lookup returned invalid position %s", ErrPermissionDenied, coords)
	}
	return coords, nil
}
