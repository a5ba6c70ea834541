package roster

import (
	"testing"

	"fieldtrack/internal/model"
)

func TestComputeShift(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		override model.ShiftOverride
		meal     bool
		hours    float64
		letter   string
	}{
		{"night wraps midnight", "22:00", "06:00", model.ShiftAuto, false, 8, "N"},
		{"day with meal", "07:00", "16:00", model.ShiftAuto, true, 8, "D"},
		{"early start is night", "04:30", "12:30", model.ShiftAuto, false, 8, "N"},
		{"05:00 is day", "05:00", "13:00", model.ShiftAuto, false, 8, "D"},
		{"21:00 is night", "21:00", "23:30", model.ShiftAuto, false, 2.5, "N"},
		{"forced night", "08:00", "17:00", model.ShiftNight, false, 9, "N"},
		{"forced day", "23:00", "07:00", model.ShiftDay, false, 8, "D"},
		{"meal floors at zero", "10:00", "10:30", model.ShiftAuto, true, 0, "D"},
		{"empty override is auto", "22:00", "02:00", "", false, 4, "N"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ComputeShift(c.start, c.end, c.override, c.meal)
			if err != nil {
				t.Fatalf("ComputeShift: %v", err)
			}
			if got.HoursTotal != c.hours || got.Letter != c.letter || got.IsNight != (c.letter == "N") {
				t.Fatalf("got %+v, want hours=%v letter=%s", got, c.hours, c.letter)
			}
		})
	}
}

func TestComputeShiftRejectsBadInput(t *testing.T) {
	if _, err := ComputeShift("25:00", "06:00", model.ShiftAuto, false); err == nil {
		t.Fatal("expected error for invalid start")
	}
	if _, err := ComputeShift("07:00", "x", model.ShiftAuto, false); err == nil {
		t.Fatal("expected error for invalid end")
	}
	if _, err := ComputeShift("07:00", "15:00", "EVENING", false); err == nil {
		t.Fatal("expected error for unknown override")
	}
}

func TestParseOverride(t *testing.T) {
	for in, want := range map[string]model.ShiftOverride{"": model.ShiftAuto, "night": model.ShiftNight, " DAY ": model.ShiftDay} {
		got, err := ParseOverride(in)
		if err != nil || got != want {
			t.Fatalf("ParseOverride(%q)=%q,%v", in, got, err)
		}
	}
	if _, err := ParseOverride("late"); err == nil {
		t.Fatal("expected error")
	}
}
