package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLocator(t *testing.T) {
	coords, err := NewStaticLocator(38.72, -9.14).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 38.72, Longitude: -9.14}, coords)
}

func TestStaticLocatorDenied(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"unset", 0, 0},
		{"latitude out of range", 91, 10},
		{"longitude out of range", 10, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticLocator(tt.lat, tt.lng).Locate(context.Background())
			assert.ErrorIs(t, err, ErrPermissionDenied)
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("gps", 1, 1, "").Locate(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "gps")
}

func TestNewSelectsProvider(t *testing.T) {
	assert.IsType(t, &StaticLocator{}, New("", 1, 1, ""))
	assert.IsType(t, &StaticLocator{}, New("static", 1, 1, ""))
	assert.IsType(t, &IPLocator{}, New("IP", 0, 0, ""))
}

func TestIPLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"203.0.113.7","latitude":52.52,"longitude":13.405}`))
	}))
	defer srv.Close()

	coords, err := NewIPLocator(srv.URL).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Latitude: 52.52, Longitude: 13.405}, coords)
}

func TestIPLocatorFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusTooManyRequests, `{}`},
		{"bad json", http.StatusOK, `{not json`},
		{"error payload", http.StatusOK, `{"error":true,"reason":"RateLimited"}`},
		{"missing position", http.StatusOK, `{"ip":"203.0.113.7"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewIPLocator(srv.URL).Locate(context.Background())
			assert.ErrorIs(t, err, ErrPermissionDenied)
		})
	}
}
