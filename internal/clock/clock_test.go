package clock

import (
	"testing"
	"time"
)

func TestCivilRoundTrip(t *testing.T) {
	t.Parallel()
	utc := time.Date(2025, 9, 1, 16, 30, 0, 0, time.UTC)
	civil := ToCivil(utc)

	if !civil.Equal(utc) {
		t.Fatalf("conversion changed the instant: %v vs %v", civil, utc)
	}
	if civil.Hour() != 23 || civil.Minute() != 30 {
		t.Fatalf("civil wall clock = %02d:%02d, want 23:30", civil.Hour(), civil.Minute())
	}
	if got := ToUTC(civil); !got.Equal(utc) {
		t.Fatalf("round trip = %v, want %v", got, utc)
	}
}

func TestStartOfDayCrossesUTCBoundary(t *testing.T) {
	t.Parallel()
	// 18:00 UTC is already the next civil day in UTC+7.
	utc := time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC)
	start := StartOfDay(utc)
	if start.Day() != 2 || start.Hour() != 0 || start.Minute() != 0 {
		t.Fatalf("StartOfDay = %v, want civil midnight Sep 2", start)
	}
}

func TestTomorrow(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, WIB)
	got := Tomorrow(now)
	if got.Day() != 1 || got.Month() != time.September {
		t.Fatalf("Tomorrow = %v, want Sep 1", got)
	}
	if got.Weekday() != time.Monday {
		t.Fatalf("Tomorrow weekday = %v, want Monday", got.Weekday())
	}
}

func TestMinuteOfDay(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 9, 1, 6, 45, 59, 0, WIB)
	if got := MinuteOfDay(now); got != 6*60+45 {
		t.Fatalf("MinuteOfDay = %d, want %d", got, 6*60+45)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "00:00", want: 0},
		{raw: "07:30", want: 450},
		{raw: "23:59", want: 1439},
		{raw: "24:00", wantErr: true},
		{raw: "12:60", wantErr: true},
		{raw: "garbage", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q) error: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFixedClock(t *testing.T) {
	t.Parallel()
	pinned := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	c := Fixed(pinned)
	got := c.NowCivil()
	if !got.Equal(pinned) {
		t.Fatalf("NowCivil = %v, want the pinned instant", got)
	}
	if got.Hour() != 17 {
		t.Fatalf("civil hour = %d, want 17", got.Hour())
	}
}

func TestFormatCivilDate(t *testing.T) {
	t.Parallel()
	d := time.Date(2025, 9, 1, 0, 0, 0, 0, WIB)
	if got := FormatCivilDate(d); got != "Senin, 1 September 2025" {
		t.Fatalf("FormatCivilDate = %q", got)
	}
}
