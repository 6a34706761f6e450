package zones

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/floorwatch/floorwatch/internal/monitoring"
)

// ScheduleType distinguishes weekly recurring windows from absolute one-time
// windows.
type ScheduleType string

const (
	ScheduleRecurring ScheduleType = "recurring"
	ScheduleOneTime   ScheduleType = "one-time"
)

// validDays are the weekday codes a recurring schedule may carry. They match
// time.Time.Format("Mon").
var validDays = map[string]bool{
	"Mon": true, "Tue": true, "Wed": true, "Thu": true,
	"Fri": true, "Sat": true, "Sun": true,
}

// Schedule is one arming window attached to a zone.
//
// SpansNextDay is tri-state: for recurring schedules it is true or false and
// selects the midnight-wraparound interpretation of Start/End; for one-time
// schedules it is nil (not applicable). It must never be defaulted to false
// for a one-time schedule.
type Schedule struct {
	ID     int64        `json:"id"`
	ZoneID int64        `json:"zone_id"`
	Type   ScheduleType `json:"type"`

	// Recurring fields. Start and End are "HH:MM" times of day.
	Days         []string `json:"days,omitempty"`
	Start        string   `json:"start,omitempty"`
	End          string   `json:"end,omitempty"`
	SpansNextDay *bool    `json:"spans_next_day,omitempty"`

	// One-time fields, absolute and timezone-aware.
	StartDateTime *time.Time `json:"start_datetime,omitempty"`
	EndDateTime   *time.Time `json:"end_datetime,omitempty"`

	Enabled   bool   `json:"enabled"`
	AlarmMode string `json:"alarm_mode,omitempty"`
}

// parseClock parses an "HH:MM" or "HH:MM:SS" time of day into minutes past
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("bad clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad clock hour %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock minute %q", s)
	}
	return h*60 + m, nil
}

// ActiveAt reports whether the schedule's window covers the given instant.
// A disabled schedule is never active. Malformed schedules return an error
// and the caller treats them as inactive (fail closed).
func (s *Schedule) ActiveAt(now time.Time) (bool, error) {
	if !s.Enabled {
		return false, nil
	}

	switch s.Type {
	case ScheduleRecurring:
		return s.recurringActiveAt(now)
	case ScheduleOneTime:
		if s.StartDateTime == nil || s.EndDateTime == nil {
			return false, fmt.Errorf("one-time schedule %d missing start or end", s.ID)
		}
		return !now.Before(*s.StartDateTime) && !now.After(*s.EndDateTime), nil
	default:
		return false, fmt.Errorf("schedule %d has unknown type %q", s.ID, s.Type)
	}
}

func (s *Schedule) recurringActiveAt(now time.Time) (bool, error) {
	today := now.Format("Mon")
	dayMatch := false
	for _, d := range s.Days {
		if !validDays[d] {
			return false, fmt.Errorf("schedule %d has malformed day code %q", s.ID, d)
		}
		if d == today {
			dayMatch = true
		}
	}
	if !dayMatch {
		return false, nil
	}

	start, err := parseClock(s.Start)
	if err != nil {
		return false, fmt.Errorf("schedule %d: %w", s.ID, err)
	}
	end, err := parseClock(s.End)
	if err != nil {
		return false, fmt.Errorf("schedule %d: %w", s.ID, err)
	}

	cur := now.Hour()*60 + now.Minute()

	if s.SpansNextDay != nil && *s.SpansNextDay {
		// Wraparound window: either the before-midnight or after-midnight half.
		return cur >= start || cur <= end, nil
	}
	return start <= cur && cur <= end, nil
}

// Partition splits schedules into the currently active and inactive sets.
// Disabled schedules and schedules that fail to parse land in inactive;
// parse failures are logged for operator follow-up rather than arming on
// ambiguous state.
func Partition(schedules []Schedule, now time.Time) (active, inactive []Schedule) {
	for _, s := range schedules {
		ok, err := s.ActiveAt(now)
		if err != nil {
			monitoring.Logf("[Zones] schedule %d treated as inactive: %v", s.ID, err)
		}
		if ok {
			active = append(active, s)
		} else {
			inactive = append(inactive, s)
		}
	}
	return active, inactive
}

// BoolPtr is a convenience for building tri-state SpansNextDay values.
func BoolPtr(b bool) *bool { return &b }
