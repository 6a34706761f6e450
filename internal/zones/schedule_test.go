package zones

import (
	"strings"
	"testing"
	"time"

	"github.com/floorwatch/floorwatch/internal/monitoring"
)

// mustTime builds a local time on a known weekday. 2025-06-02 is a Monday.
func mondayAt(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func TestRecurringSameDayWindow(t *testing.T) {
	s := Schedule{
		ID:           1,
		Type:         ScheduleRecurring,
		Days:         []string{"Mon", "Wed"},
		Start:        "09:00",
		End:          "17:00",
		SpansNextDay: BoolPtr(false),
		Enabled:      true,
	}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid window", mondayAt(12, 0), true},
		{"at start", mondayAt(9, 0), true},
		{"at end", mondayAt(17, 0), true},
		{"before start", mondayAt(8, 59), false},
		{"after end", mondayAt(17, 1), false},
		{"wrong day", mondayAt(12, 0).AddDate(0, 0, 1), false}, // Tuesday
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ActiveAt(tc.at)
			if err != nil {
				t.Fatalf("ActiveAt: %v", err)
			}
			if got != tc.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestRecurringWraparoundWindow(t *testing.T) {
	s := Schedule{
		ID:           2,
		Type:         ScheduleRecurring,
		Days:         []string{"Mon"},
		Start:        "22:00",
		End:          "02:00",
		SpansNextDay: BoolPtr(true),
		Enabled:      true,
	}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before midnight", mondayAt(23, 30), true},
		{"after midnight", mondayAt(1, 0), true},
		{"midday", mondayAt(12, 0), false},
		{"exactly start", mondayAt(22, 0), true},
		{"exactly end", mondayAt(2, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ActiveAt(tc.at)
			if err != nil {
				t.Fatalf("ActiveAt: %v", err)
			}
			if got != tc.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestOneTimeWindow(t *testing.T) {
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	s := Schedule{
		ID:            3,
		Type:          ScheduleOneTime,
		StartDateTime: &start,
		EndDateTime:   &end,
		Enabled:       true,
		// SpansNextDay deliberately nil: not applicable for one-time.
	}

	if ok, _ := s.ActiveAt(start.Add(time.Hour)); !ok {
		t.Error("inside window should be active")
	}
	if ok, _ := s.ActiveAt(start.Add(-time.Minute)); ok {
		t.Error("before window should be inactive")
	}
	if ok, _ := s.ActiveAt(end.Add(time.Minute)); ok {
		t.Error("after window should be inactive")
	}

	// Timezone-aware: the same instant expressed in another zone matches.
	inParis := start.Add(time.Hour).In(time.FixedZone("CET", 3600))
	if ok, _ := s.ActiveAt(inParis); !ok {
		t.Error("same instant in another zone should be active")
	}
}

func TestDisabledScheduleNeverActive(t *testing.T) {
	s := Schedule{
		ID:           4,
		Type:         ScheduleRecurring,
		Days:         []string{"Mon"},
		Start:        "00:00",
		End:          "23:59",
		SpansNextDay: BoolPtr(false),
		Enabled:      false,
	}
	if ok, err := s.ActiveAt(mondayAt(12, 0)); ok || err != nil {
		t.Errorf("disabled schedule: active=%v err=%v", ok, err)
	}
}

func TestMalformedDayCodeFailsClosed(t *testing.T) {
	s := Schedule{
		ID:           5,
		Type:         ScheduleRecurring,
		Days:         []string{"Monday"}, // wrong format
		Start:        "00:00",
		End:          "23:59",
		SpansNextDay: BoolPtr(false),
		Enabled:      true,
	}
	ok, err := s.ActiveAt(mondayAt(12, 0))
	if ok {
		t.Error("malformed schedule must not arm")
	}
	if err == nil {
		t.Error("malformed day code should surface an error")
	}
}

func TestMalformedClockFailsClosed(t *testing.T) {
	s := Schedule{
		ID:           6,
		Type:         ScheduleRecurring,
		Days:         []string{"Mon"},
		Start:        "25:99",
		End:          "17:00",
		SpansNextDay: BoolPtr(false),
		Enabled:      true,
	}
	ok, err := s.ActiveAt(mondayAt(12, 0))
	if ok || err == nil {
		t.Errorf("bad clock: active=%v err=%v", ok, err)
	}
}

func TestPartition(t *testing.T) {
	rec := &monitoring.Recorder{}
	prev := monitoring.Logf
	monitoring.SetLogger(rec.Logf)
	defer monitoring.SetLogger(prev)

	schedules := []Schedule{
		{ID: 1, Type: ScheduleRecurring, Days: []string{"Mon"}, Start: "00:00", End: "23:59", SpansNextDay: BoolPtr(false), Enabled: true},
		{ID: 2, Type: ScheduleRecurring, Days: []string{"Tue"}, Start: "00:00", End: "23:59", SpansNextDay: BoolPtr(false), Enabled: true},
		{ID: 3, Type: ScheduleRecurring, Days: []string{"BadDay"}, Start: "00:00", End: "23:59", SpansNextDay: BoolPtr(false), Enabled: true},
		{ID: 4, Type: ScheduleRecurring, Days: []string{"Mon"}, Start: "00:00", End: "23:59", SpansNextDay: BoolPtr(false), Enabled: false},
	}

	active, inactive := Partition(schedules, mondayAt(10, 0))
	if len(active) != 1 || active[0].ID != 1 {
		t.Errorf("active = %+v, want only schedule 1", active)
	}
	if len(inactive) != 3 {
		t.Errorf("inactive = %d schedules, want 3", len(inactive))
	}

	// The malformed schedule was logged for operator follow-up.
	found := false
	for _, line := range rec.Lines() {
		if strings.Contains(line, "schedule 3") {
			found = true
		}
	}
	if !found {
		t.Error("expected a log line for the malformed schedule")
	}
}
