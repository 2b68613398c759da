// Package goldenhour derives golden-hour boundaries from sunrise and
// sunset times and counts down to the next one.
//
// Everything here is a pure function of its inputs. Callers own the
// clock and any timer that re-invokes ComputeCountdown.
package goldenhour

import (
	"fmt"
	"time"
)

// Offset is the distance between a sun event and the golden-hour
// boundary derived from it.
const Offset = 60 * time.Minute

// Window holds the golden-hour boundaries of one day.
type Window struct {
	Sunrise      time.Time `json:"sunrise"`
	Sunset       time.Time `json:"sunset"`
	MorningEnd   time.Time `json:"morning_end"`
	EveningStart time.Time `json:"evening_start"`
}

// DeriveWindow computes the morning and evening boundaries. Inputs that
// violate sunrise < sunset are not rejected; see Window.Valid.
func DeriveWindow(sunrise, sunset time.Time) Window {
	return Window{
		Sunrise:      sunrise,
		Sunset:       sunset,
		MorningEnd:   sunrise.Add(Offset),
		EveningStart: sunset.Add(-Offset),
	}
}

// Valid reports whether the sun times were ordered.
func (w Window) Valid() bool {
	return w.Sunrise.Before(w.Sunset)
}

// IsDaylight reports whether at falls strictly between sunrise and
// sunset of this window's day. The sun is never up in an unordered window.
func (w Window) IsDaylight(at time.Time) bool {
	return at.After(w.Sunrise) && at.Before(w.Sunset)
}

// SelectNextGoldenHour picks the next boundary after now. Once the
// evening boundary has passed, the morning boundary is moved to the
// next calendar day rather than recomputed from that day's sunrise.
func SelectNextGoldenHour(w Window, now time.Time) time.Time {
	if now.Before(w.MorningEnd) {
		return w.MorningEnd
	}
	if now.Before(w.EveningStart) {
		return w.EveningStart
	}
	return w.MorningEnd.AddDate(0, 0, 1)
}

// Countdown is the time left until a target, split into whole units.
type Countdown struct {
	Hours     int64         `json:"hours"`
	Minutes   int64         `json:"minutes"`
	Seconds   int64         `json:"seconds"`
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"expired"`
}

// ExpiredMessage is shown in place of a countdown once the target is reached.
const ExpiredMessage = "Golden hour is now!"

// ComputeCountdown returns the floor decomposition of target-now in
// milliseconds, or an expired countdown when target is not after now.
func ComputeCountdown(target, now time.Time) Countdown {
	diff := target.Sub(now)
	if diff <= 0 {
		return Countdown{Expired: true}
	}
	ms := diff.Milliseconds()
	return Countdown{
		Hours:     ms / 3600000,
		Minutes:   (ms % 3600000) / 60000,
		Seconds:   (ms % 60000) / 1000,
		Remaining: diff,
	}
}

func (c Countdown) String() string {
	if c.Expired {
		return ExpiredMessage
	}
	return fmt.Sprintf("%dh %dm %ds", c.Hours, c.Minutes, c.Seconds)
}
