package display

import (
	"fmt"
	"io"
	"sync"

	"golden-hour/internal/session"
)

// Terminal writes snapshots to a text stream. With Inline set the
// countdown rewrites a single line instead of printing one per tick.
type Terminal struct {
	out    io.Writer
	format Formatter
	inline bool

	mu        sync.Mutex
	lastID    string
	lastState session.State
}

func NewTerminal(out io.Writer, format Formatter, inline bool) *Terminal {
	return &Terminal{out: out, format: format, inline: inline}
}

func (t *Terminal) Render(s session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := s.ID != t.lastID || s.State != t.lastState
	t.lastID = s.ID
	t.lastState = s.State

	v := t.format.View(s, s.UpdatedAt)

	switch s.State {
	case session.StateDisplaying:
		if changed {
			t.printWindow(v)
		}
		t.printCountdown(v.Countdown)
	case session.StateExpired:
		if t.inline {
			fmt.Fprint(t.out, "\r\033[K")
		}
		fmt.Fprintln(t.out, v.Countdown)
	default:
		if !changed {
			return
		}
		if v.Error != "" {
			fmt.Fprintf(t.out, "%s: %s\n", v.Status, v.Error)
			return
		}
		fmt.Fprintf(t.out, "%s...\n", capitalize(v.Status))
	}
}

func (t *Terminal) printWindow(v View) {
	fmt.Fprintf(t.out, "Next Golden Hour:    %s\n", v.NextGoldenHour)
	fmt.Fprintf(t.out, "Sunset:              %s\n", v.Sunset)
	fmt.Fprintf(t.out, "Evening Golden Hour: %s\n", v.EveningStart)
	fmt.Fprintf(t.out, "Sunrise:             %s\n", v.Sunrise)
	fmt.Fprintf(t.out, "Morning Golden Hour: %s\n", v.MorningEnd)
	if v.SunAltitude != "" {
		fmt.Fprintf(t.out, "Sun altitude:        %s\n", v.SunAltitude)
	}
}

func (t *Terminal) printCountdown(countdown string) {
	if t.inline {
		fmt.Fprintf(t.out, "\r\033[KCountdown: %s", countdown)
		return
	}
	fmt.Fprintf(t.out, "Countdown: %s\n", countdown)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
