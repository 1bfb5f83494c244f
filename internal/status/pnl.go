package status

import (
	"context"
	"fmt"
	"time"

	"github.com/ksred/tradeplan/internal/catalog"
)

// The engine stores LogDate as .NET ticks: 100ns intervals since
// 0001-01-01, in the engine's local wall clock.
const (
	ticksPerSecond   = 10_000_000
	ticksEpochOffset = 62_135_596_800
)

// TicksToTime converts engine ticks to a wall-clock time. The location is
// UTC only as a carrier; the value is the engine's local time.
func TicksToTime(ticks int64) time.Time {
	return time.Unix(ticks/ticksPerSecond-ticksEpochOffset, (ticks%ticksPerSecond)*100).UTC()
}

// TimeToTicks is the inverse of TicksToTime.
func TimeToTicks(t time.Time) int64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return (wall.Unix()+ticksEpochOffset)*ticksPerSecond + int64(wall.Nanosecond()/100)
}

// Window is the part of the session a P&L report covers, as offsets from
// midnight.
type Window struct {
	From time.Duration
	To   time.Duration
}

// DefaultWindow covers 09:20 to 16:50.
var DefaultWindow = Window{From: 9*time.Hour + 20*time.Minute, To: 16*time.Hour + 50*time.Minute}

// ParseWindow reads HH:MM bounds. Blank bounds fall back to DefaultWindow.
func ParseWindow(from, to string) (Window, error) {
	w := DefaultWindow
	parse := func(s string, dst *time.Duration) error {
		if s == "" {
			return nil
		}
		t, err := time.Parse("15:04", s)
		if err != nil {
			return fmt.Errorf("invalid time %q: want HH:MM", s)
		}
		*dst = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		return nil
	}
	if err := parse(from, &w.From); err != nil {
		return Window{}, err
	}
	if err := parse(to, &w.To); err != nil {
		return Window{}, err
	}
	if w.To <= w.From {
		return Window{}, fmt.Errorf("window end %s is not after start %s", to, from)
	}
	return w, nil
}

// PnLPoint is one logged P&L value.
type PnLPoint struct {
	Time        time.Time `json:"time"`
	PL          float64   `json:"pl"`
	PremiumSold float64   `json:"premium_sold"`
}

// PnLSummary reports the extremes and the last value of a session.
type PnLSummary struct {
	Date    string     `json:"date"`
	Entries int        `json:"entries"`
	Lowest  PnLPoint   `json:"lowest"`
	Highest PnLPoint   `json:"highest"`
	Final   PnLPoint   `json:"final"`
	Series  []PnLPoint `json:"series,omitempty"`
}

// PnL summarizes the DailyLog entries of day inside w. Ties keep the
// earliest entry. A day with no entries returns an error wrapping
// catalog.ErrNotFound.
func (s *Service) PnL(ctx context.Context, day time.Time, w Window, withSeries bool) (*PnLSummary, error) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	from := TimeToTicks(midnight.Add(w.From))
	// The upper bound is inclusive to the second.
	to := TimeToTicks(midnight.Add(w.To).Add(time.Second))

	logs, err := NewDatabase(s.db.WithContext(ctx)).GetDailyLogs(from, to)
	if err != nil {
		return nil, fmt.Errorf("read daily log: %w", err)
	}
	date := midnight.Format("2006-01-02")
	if len(logs) == 0 {
		return nil, fmt.Errorf("no P&L entries for %s: %w", date, catalog.ErrNotFound)
	}

	summary := &PnLSummary{Date: date, Entries: len(logs)}
	for i, entry := range logs {
		p := PnLPoint{Time: TicksToTime(entry.LogDate), PL: entry.PL, PremiumSold: entry.PremiumSold}
		if i == 0 || p.PL < summary.Lowest.PL {
			summary.Lowest = p
		}
		if i == 0 || p.PL > summary.Highest.PL {
			summary.Highest = p
		}
		summary.Final = p
		if withSeries {
			summary.Series = append(summary.Series, p)
		}
	}
	return summary, nil
}
