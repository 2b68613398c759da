package goldenhour

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, time.June, 21, hour, min, sec, 0, time.UTC)
}

func TestDeriveWindow(t *testing.T) {
	w := DeriveWindow(at(7, 0, 0), at(19, 0, 0))

	assert.Equal(t, at(8, 0, 0), w.MorningEnd)
	assert.Equal(t, at(18, 0, 0), w.EveningStart)
	assert.Equal(t, at(7, 0, 0), w.Sunrise)
	assert.Equal(t, at(19, 0, 0), w.Sunset)
	assert.True(t, w.Valid())
}

func TestDeriveWindowRandomizedSameDay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	day := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		a := time.Duration(rng.Int63n(int64(24 * time.Hour)))
		b := time.Duration(rng.Int63n(int64(24 * time.Hour)))
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		sunrise, sunset := day.Add(a), day.Add(b)

		w := DeriveWindow(sunrise, sunset)
		require.Equal(t, sunrise.Add(60*time.Minute), w.MorningEnd)
		require.Equal(t, sunset.Add(-60*time.Minute), w.EveningStart)
		require.True(t, w.Valid())
	}
}

func TestDeriveWindowUnorderedInput(t *testing.T) {
	w := DeriveWindow(at(19, 0, 0), at(7, 0, 0))

	assert.False(t, w.Valid())
	assert.Equal(t, at(20, 0, 0), w.MorningEnd)
	assert.Equal(t, at(6, 0, 0), w.EveningStart)
}

func TestWindowIsDaylight(t *testing.T) {
	w := DeriveWindow(at(7, 0, 0), at(19, 0, 0))

	assert.True(t, w.IsDaylight(at(12, 0, 0)))
	assert.False(t, w.IsDaylight(at(6, 59, 59)))
	assert.False(t, w.IsDaylight(at(7, 0, 0)))
	assert.False(t, w.IsDaylight(at(19, 0, 0)))
	assert.False(t, DeriveWindow(at(19, 0, 0), at(7, 0, 0)).IsDaylight(at(12, 0, 0)))
}

func TestSelectNextGoldenHour(t *testing.T) {
	w := DeriveWindow(at(7, 0, 0), at(19, 0, 0))
	nextMorning := time.Date(2024, time.June, 22, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before morning end", at(6, 0, 0), at(8, 0, 0)},
		{"exactly morning end", at(8, 0, 0), at(18, 0, 0)},
		{"midday", at(9, 0, 0), at(18, 0, 0)},
		{"exactly evening start", at(18, 0, 0), nextMorning},
		{"after evening start", at(18, 30, 0), nextMorning},
		{"before midnight", at(23, 59, 59), nextMorning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectNextGoldenHour(w, tt.now)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestSelectNextGoldenHourAlwaysAfterNow(t *testing.T) {
	w := DeriveWindow(at(5, 12, 30), at(21, 4, 10))
	start := at(0, 0, 0)

	for step := time.Duration(0); step < 24*time.Hour; step += 17 * time.Second {
		now := start.Add(step)
		assert.True(t, SelectNextGoldenHour(w, now).After(now), "now=%s", now)
	}
}

func TestSelectNextGoldenHourKeepsLocalTimeAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks move forward on 2024-03-31.
	sunrise := time.Date(2024, time.March, 30, 6, 0, 0, 0, loc)
	sunset := time.Date(2024, time.March, 30, 19, 30, 0, 0, loc)
	w := DeriveWindow(sunrise, sunset)

	got := SelectNextGoldenHour(w, time.Date(2024, time.March, 30, 20, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.March, 31, 7, 0, 0, 0, loc), got)
	assert.Equal(t, 23*time.Hour, got.Sub(w.MorningEnd))
}

func TestComputeCountdownScenarios(t *testing.T) {
	w := DeriveWindow(at(7, 0, 0), at(19, 0, 0))

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"early morning", at(6, 0, 0), "2h 0m 0s"},
		{"mid morning", at(9, 0, 0), "9h 0m 0s"},
		{"evening", at(18, 30, 0), "13h 30m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ComputeCountdown(SelectNextGoldenHour(w, tt.now), tt.now)
			assert.False(t, c.Expired)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestComputeCountdownExpired(t *testing.T) {
	target := at(8, 0, 0)

	c := ComputeCountdown(target, target)
	assert.True(t, c.Expired)
	assert.Equal(t, ExpiredMessage, c.String())
	assert.Zero(t, c.Hours)
	assert.Zero(t, c.Minutes)
	assert.Zero(t, c.Seconds)

	assert.True(t, ComputeCountdown(target, target.Add(time.Millisecond)).Expired)
}

func TestComputeCountdownBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := at(12, 0, 0)

	for i := 0; i < 5000; i++ {
		diffMs := rng.Int63n(int64(72*time.Hour/time.Millisecond)) + 1
		c := ComputeCountdown(now.Add(time.Duration(diffMs)*time.Millisecond), now)

		require.False(t, c.Expired)
		require.GreaterOrEqual(t, c.Hours, int64(0))
		require.True(t, c.Minutes >= 0 && c.Minutes < 60)
		require.True(t, c.Seconds >= 0 && c.Seconds < 60)

		floor := c.Hours*3600000 + c.Minutes*60000 + c.Seconds*1000
		require.LessOrEqual(t, floor, diffMs)
		require.Less(t, diffMs, floor+1000)
	}
}

func TestComputeCountdownSubSecond(t *testing.T) {
	now := at(12, 0, 0)
	c := ComputeCountdown(now.Add(999*time.Millisecond), now)

	assert.False(t, c.Expired)
	assert.Equal(t, "0h 0m 0s", c.String())
}

func TestSolar(t *testing.T) {
	// Lisbon, midsummer noon.
	info := Solar(time.Date(2024, time.June, 21, 12, 30, 0, 0, time.UTC), 38.72, -9.14)

	assert.Greater(t, info.AltitudeDegrees, 0.0)
	assert.LessOrEqual(t, info.AltitudeDegrees, 90.0)
	assert.True(t, info.MorningEnd.Before(info.EveningStart))
}
