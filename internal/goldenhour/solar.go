package goldenhour

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// SolarInfo is an astronomical view of the same day: the sun's altitude
// at a moment and the golden hour as suncalc defines it (sun 6 degrees
// above the horizon). It is informational only.
type SolarInfo struct {
	AltitudeDegrees float64   `json:"altitude_degrees"`
	MorningEnd      time.Time `json:"morning_end"`
	EveningStart    time.Time `json:"evening_start"`
}

// Solar computes SolarInfo for the given moment and location.
func Solar(at time.Time, lat, lng float64) SolarInfo {
	pos := suncalc.GetPosition(at, lat, lng)
	times := suncalc.GetTimes(at, lat, lng)
	loc := at.Location()
	return SolarInfo{
		AltitudeDegrees: pos.Altitude * 180 / math.Pi,
		MorningEnd:      times["goldenHourEnd"].Value.In(loc),
		EveningStart:    times["goldenHour"].Value.In(loc),
	}
}
