// Package geolocation resolves the coordinates the golden-hour session
// runs against. A Locator is only consulted after the user granted
// location access.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrPermissionDenied is returned when location access is refused or
// no location source is available.
var ErrPermissionDenied = errors.New("location permission denied")

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Valid reports whether both values are within range and not the
// zero placeholder.
func (c Coordinates) Valid() bool {
	if c.Latitude == 0 && c.Longitude == 0 {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Locator is a one-shot position lookup.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator serves configured coordinates.
type StaticLocator struct {
	coords Coordinates
}

func NewStaticLocator(latitude, longitude float64) *StaticLocator {
	return &StaticLocator{coords: Coordinates{Latitude: latitude, Longitude: longitude}}
}

func (l *StaticLocator) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	if !l.coords.Valid() {
		return Coordinates{}, fmt.Errorf("%w: no coordinates configured", ErrPermissionDenied)
	}
	return l.coords, nil
}

// New builds the locator named by provider. Unknown providers yield a
// locator that always denies.
func New(provider string, latitude, longitude float64, ipEndpoint string) Locator {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "static", "config":
		return NewStaticLocator(latitude, longitude)
	case "ip", "ipapi":
		return NewIPLocator(ipEndpoint)
	default:
		return deniedLocator{reason: fmt.Sprintf("location provider not supported: %s", provider)}
	}
}

type deniedLocator struct {
	reason string
}

func (d deniedLocator) Locate(context.Context) (Coordinates, error) {
	return Coordinates{}, fmt.Errorf("%w: %s", ErrPermissionDenied, d.reason)
}
