// Package timeparse normalizes operator-supplied date/time input into a
// single UTC instant. Input arrives either as separate date and time fields
// with a selectable day/month order, or as a legacy combined ISO-8601 string
// that may need repair before it parses.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidDateFormat is returned for malformed separators, out-of-range
	// components or calendar-invalid dates.
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrInvalidDuration is returned when a session length falls outside the
	// allowed bounds.
	ErrInvalidDuration = errors.New("invalid duration")
)

// DateFormat selects the day/month order of slash-separated dates
type DateFormat string

const (
	FormatDMY DateFormat = "DD/MM/YYYY"
	FormatMDY DateFormat = "MM/DD/YYYY"
)

const (
	// MinDurationMinutes and MaxDurationMinutes bound a session's length
	MinDurationMinutes = 15
	MaxDurationMinutes = 480

	minYear = 2020
	maxYear = 2030
)

// ValidateDuration checks session length bounds independently of which date
// path produced the start instant.
func ValidateDuration(minutes int) error {
	if minutes < MinDurationMinutes || minutes > MaxDurationMinutes {
		return fmt.Errorf("%w: duration must be between %d and %d minutes, got %d",
			ErrInvalidDuration, MinDurationMinutes, MaxDurationMinutes, minutes)
	}
	return nil
}

// IsImmediate reports whether a start instant at or before now should begin
// the session active rather than scheduled.
func IsImmediate(start, now time.Time) bool {
	return !start.After(now)
}

// Normalize parses a (date, time, format) triple into a UTC instant.
// The date may be DD/MM/YYYY or MM/DD/YYYY depending on format, or always
// YYYY-MM-DD. A missing time defaults to midnight.
func Normalize(dateStr, timeStr string, format DateFormat) (time.Time, error) {
	year, month, day, err := parseDate(dateStr, format)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, err
	}

	// time.Date normalizes overflowing components (Feb 30 becomes Mar 2), so
	// re-derive and compare to catch calendar-invalid input.
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %02d/%02d/%04d is not a valid calendar date",
			ErrInvalidDateFormat, day, month, year)
	}
	return t, nil
}

func parseDate(dateStr string, format DateFormat) (year, month, day int, err error) {
	dateStr = strings.TrimSpace(dateStr)

	badFormat := fmt.Errorf("%w: expected %s, %s or YYYY-MM-DD, got %q",
		ErrInvalidDateFormat, FormatDMY, FormatMDY, dateStr)

	if parts := strings.Split(dateStr, "-"); len(parts) == 3 && len(parts[0]) == 4 {
		// ISO-style date, format selector does not apply
		year, err = atoiComponent(parts[0])
		if err != nil {
			return 0, 0, 0, badFormat
		}
		month, err = atoiComponent(parts[1])
		if err != nil {
			return 0, 0, 0, badFormat
		}
		day, err = atoiComponent(parts[2])
		if err != nil {
			return 0, 0, 0, badFormat
		}
	} else {
		parts := strings.Split(dateStr, "/")
		if len(parts) != 3 {
			return 0, 0, 0, badFormat
		}
		first, err1 := atoiComponent(parts[0])
		second, err2 := atoiComponent(parts[1])
		third, err3 := atoiComponent(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, 0, 0, badFormat
		}
		year = third
		if format == FormatMDY {
			month, day = first, second
		} else {
			day, month = first, second
		}
	}

	if day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("%w: day %d out of range", ErrInvalidDateFormat, day)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("%w: month %d out of range", ErrInvalidDateFormat, month)
	}
	if year < minYear || year > maxYear {
		return 0, 0, 0, fmt.Errorf("%w: year %d out of range [%d, %d]",
			ErrInvalidDateFormat, year, minYear, maxYear)
	}
	return year, month, day, nil
}

// parseClock accepts 24-hour "HH:MM" or 12-hour "H:MM AM/PM"; empty means midnight
func parseClock(timeStr string) (hour, minute int, err error) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return 0, 0, nil
	}

	badFormat := fmt.Errorf("%w: expected time as HH:MM or H:MM AM/PM, got %q",
		ErrInvalidDateFormat, timeStr)

	meridiem := ""
	upper := strings.ToUpper(timeStr)
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			meridiem = suffix
			timeStr = strings.TrimSpace(timeStr[:len(timeStr)-2])
			break
		}
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, 0, badFormat
	}
	hour, err = atoiComponent(parts[0])
	if err != nil {
		return 0, 0, badFormat
	}
	minute, err = atoiComponent(parts[1])
	if err != nil {
		return 0, 0, badFormat
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute %d out of range", ErrInvalidDateFormat, minute)
	}

	if meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("%w: hour %d out of range for 12-hour time", ErrInvalidDateFormat, hour)
		}
		if hour == 12 {
			hour = 0
		}
		if meridiem == "PM" {
			hour += 12
		}
	} else if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour %d out of range", ErrInvalidDateFormat, hour)
	}
	return hour, minute, nil
}

// NormalizeLegacy parses a combined ISO-8601 string, repairing the common
// defects seen in stored data first: single-digit date or clock components,
// missing seconds and a missing timezone suffix.
func NormalizeLegacy(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty datetime string", ErrInvalidDateFormat)
	}

	repaired, err := repairISO(s)
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, repaired)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not parse as ISO-8601 (repaired to %q)",
			ErrInvalidDateFormat, raw, repaired)
	}
	return t.UTC(), nil
}

func repairISO(s string) (string, error) {
	badFormat := fmt.Errorf("%w: expected an ISO-8601 datetime like 2025-09-20T14:00:00Z, got %q",
		ErrInvalidDateFormat, s)

	// Tolerate a space separator between date and time
	if !strings.ContainsRune(s, 'T') && strings.Count(s, " ") == 1 {
		s = strings.Replace(s, " ", "T", 1)
	}

	datePart := s
	timePart := ""
	if idx := strings.IndexByte(s, 'T'); idx >= 0 {
		datePart, timePart = s[:idx], s[idx+1:]
	}

	// Peel off the timezone suffix, if any
	zone := ""
	if strings.HasSuffix(timePart, "Z") {
		zone = "Z"
		timePart = timePart[:len(timePart)-1]
	} else if idx := strings.LastIndexAny(timePart, "+-"); idx > 0 {
		zone = timePart[idx:]
		timePart = timePart[:idx]
		if len(zone) == 6 && zone[3] == ':' {
			// already ±HH:MM
		} else if len(zone) == 5 {
			// ±HHMM, insert the colon RFC 3339 requires
			zone = zone[:3] + ":" + zone[3:]
		} else {
			return "", badFormat
		}
	}
	if zone == "" {
		zone = "Z"
	}

	dateFields := strings.Split(datePart, "-")
	if len(dateFields) != 3 {
		return "", badFormat
	}
	for i := 1; i < 3; i++ {
		dateFields[i] = pad2(dateFields[i])
	}

	if timePart == "" {
		timePart = "00:00:00"
	} else {
		clockFields := strings.Split(timePart, ":")
		if len(clockFields) > 3 {
			return "", badFormat
		}
		for len(clockFields) < 3 {
			clockFields = append(clockFields, "00")
		}
		for i := range clockFields {
			clockFields[i] = pad2(clockFields[i])
		}
		timePart = strings.Join(clockFields, ":")
	}

	return strings.Join(dateFields, "-") + "T" + timePart + zone, nil
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// atoiComponent rejects empty strings and embedded signs that Atoi would accept
func atoiComponent(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", s)
		}
	}
	return strconv.Atoi(s)
}
