package catalog

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPlan is used for plan rows that do not name a plan.
const DefaultPlan = "P1"

// DefaultTimes is the entry grid the engine schedules against.
var DefaultTimes = []string{
	"09:33", "09:39", "09:45", "09:52", "10:00", "10:08", "10:15", "10:23",
	"10:30", "10:38", "10:45", "10:53", "11:00", "11:08", "11:15", "11:23",
	"11:30", "11:38", "11:45", "11:53", "12:00", "12:08", "12:15", "12:23",
	"12:30", "12:38", "12:45", "12:53", "13:00", "13:08", "13:15", "13:23",
	"13:30", "13:38", "13:45", "13:53", "14:00", "14:08", "14:15", "14:23",
	"14:30", "14:38", "14:45", "14:53", "15:00", "15:08", "15:15", "15:23",
	"15:30", "15:38", "15:45",
}

// PlanSuffixes returns P1..Pn.
func PlanSuffixes(n int) []string {
	plans := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		plans = append(plans, fmt.Sprintf("P%d", i))
	}
	return plans
}

// NormalizeSlot parses an HH:MM time of day and returns it zero padded, so
// "9:33" and "09:33" name the same template.
func NormalizeSlot(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid time slot %q: want HH:MM", s)
	}
	return t.Format("15:04"), nil
}

// SlotClock splits a normalized slot into hour and minute.
func SlotClock(slot string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time slot %q: want HH:MM", slot)
	}
	return t.Hour(), t.Minute(), nil
}
