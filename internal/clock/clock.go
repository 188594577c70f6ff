// Package clock normalizes between UTC storage time and the civil timezone
// used for all human-facing time math. The application serves one locale, so
// the civil zone is a fixed offset from UTC (WIB, UTC+7, no DST).
//
// Deadline proximity, "tomorrow", and reminder-time-of-day comparisons all
// operate on civil instants so day boundaries match what users see.
package clock

import (
	"fmt"
	"time"
)

const wibOffsetHours = 7

// WIB is the civil timezone for the whole application (Waktu Indonesia Barat).
var WIB = time.FixedZone("WIB", wibOffsetHours*60*60)

// Clock produces civil instants. The zero value uses the real time source;
// tests override Now.
type Clock struct {
	// Now returns the current instant. Nil means time.Now.
	Now func() time.Time
}

// System returns a Clock backed by the real time source.
func System() *Clock {
	return &Clock{}
}

// Fixed returns a Clock pinned to t, for tests and dry runs.
func Fixed(t time.Time) *Clock {
	return &Clock{Now: func() time.Time { return t }}
}

// NowCivil returns the current instant in the civil timezone.
func (c *Clock) NowCivil() time.Time {
	if c.Now != nil {
		return c.Now().In(WIB)
	}
	return time.Now().In(WIB)
}

// ToCivil converts any instant to the civil timezone. The instant itself is
// unchanged; only the location differs.
func ToCivil(t time.Time) time.Time {
	return t.In(WIB)
}

// ToUTC converts a civil instant back to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// StartOfDay returns civil midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	ct := ToCivil(t)
	return time.Date(ct.Year(), ct.Month(), ct.Day(), 0, 0, 0, 0, WIB)
}

// Tomorrow returns the instant one civil day after t.
func Tomorrow(t time.Time) time.Time {
	return ToCivil(t).AddDate(0, 0, 1)
}

// MinuteOfDay returns the civil time-of-day of t in minutes since midnight.
// Used for reminder-time and DND window comparisons.
func MinuteOfDay(t time.Time) int {
	ct := ToCivil(t)
	return ct.Hour()*60 + ct.Minute()
}

// ParseTimeOfDay parses an "HH:MM" string into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h*60 + m, nil
}

// --------------------------------------------------------------------------
// Indonesian civil-date formatting
// --------------------------------------------------------------------------

var weekdayNames = [7]string{
	"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu",
}

var monthNames = [13]string{
	"", "Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// WeekdayName returns the Indonesian name for a weekday.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[int(d)]
}

// FormatCivilDate renders t as "Senin, 1 September 2025" in the civil zone.
func FormatCivilDate(t time.Time) string {
	ct := ToCivil(t)
	return fmt.Sprintf("%s, %d %s %d",
		weekdayNames[int(ct.Weekday())], ct.Day(), monthNames[int(ct.Month())], ct.Year())
}
