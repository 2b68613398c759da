// Package display renders session snapshots for people: clock
// formatting and the terminal countdown.
package display

import (
	"fmt"
	"strings"
	"time"

	"golden-hour/internal/session"
)

const DefaultLayout = "15:04"

// Formatter turns instants into wall-clock strings for one location.
type Formatter struct {
	Location *time.Location
	Layout   string
}

// NewFormatter loads tz ("" or "Local" for the host zone).
func NewFormatter(tz, layout string) (Formatter, error) {
	loc := time.Local
	if tz = strings.TrimSpace(tz); tz != "" && !strings.EqualFold(tz, "local") {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return Formatter{}, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}
	if strings.TrimSpace(layout) == "" {
		layout = DefaultLayout
	}
	return Formatter{Location: loc, Layout: layout}, nil
}

func (f Formatter) Clock(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultLayout
	}
	return t.In(loc).Format(layout)
}

// View is a snapshot flattened to display strings.
type View struct {
	State          string `json:"state"`
	Status         string `json:"status"`
	LocalTime      string `json:"local_time"`
	NextGoldenHour string `json:"next_golden_hour,omitempty"`
	Countdown      string `json:"countdown,omitempty"`
	Sunrise        string `json:"sunrise,omitempty"`
	MorningEnd     string `json:"morning_golden_hour,omitempty"`
	Sunset         string `json:"sunset,omitempty"`
	EveningStart   string `json:"evening_golden_hour,omitempty"`
	SunAltitude    string `json:"sun_altitude,omitempty"`
	Daylight       bool   `json:"daylight"`
	Error          string `json:"error,omitempty"`
	// CanGrant is set when only a new permission grant can move the
	// session forward.
	CanGrant       bool   `json:"can_grant"`
}

func (f Formatter) View(s session.Snapshot, now time.Time) View {
	v := View{
		State:     string(s.State),
		Status:    s.State.Describe(),
		LocalTime: f.Clock(now),
		Error:     s.Error,
		CanGrant:  s.State == session.StateAwaitingPermission || s.State == session.StateExpired || s.Error != "",
	}
	if s.Next != nil {
		v.NextGoldenHour = f.Clock(*s.Next)
	}
	switch s.State {
	case session.StateDisplaying, session.StateExpired:
		v.Countdown = s.Countdown.String()
	}
	if s.Window != nil {
		v.Sunrise = f.Clock(s.Window.Sunrise)
		v.MorningEnd = f.Clock(s.Window.MorningEnd)
		v.Sunset = f.Clock(s.Window.Sunset)
		v.EveningStart = f.Clock(s.Window.EveningStart)
		v.Daylight = s.Window.IsDaylight(now)
	}
	if s.Solar != nil {
		v.SunAltitude = fmt.Sprintf("%.1f°", s.Solar.AltitudeDegrees)
	}
	return v
}
