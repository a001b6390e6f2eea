package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// missionDateFormats are tried first, in order
var missionDateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// fallbackDateFormats cover what spreadsheets and clients commonly emit
var fallbackDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"02.01.2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"02/01/06",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses a calendar date and returns it at midnight UTC.
// Excel serial day numbers are accepted as a last resort.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	for _, layout := range missionDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	for _, layout := range fallbackDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return dateOnly(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %q", raw)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// timeOfDayFormats are matched against the lower-cased input
var timeOfDayFormats = []string{
	"15:04",
	"15:04:05",
	"15h04",
	"15h",
	"1504",
	"3:04pm",
	"3:04 pm",
	"3pm",
}

// ParseTimeOfDay normalizes a time of day to HH:MM. Spreadsheet day
// fractions (0.375 = 09:00) are accepted.
func ParseTimeOfDay(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("time is empty")
	}

	lower := strings.ToLower(s)
	for _, layout := range timeOfDayFormats {
		if t, err := time.Parse(layout, lower); err == nil {
			return t.Format("15:04"), nil
		}
	}

	if frac, err := strconv.ParseFloat(s, 64); err == nil && frac >= 0 && frac < 1 {
		minutes := int(math.Round(frac * 24 * 60))
		return fmt.Sprintf("%02d:%02d", minutes/60%24, minutes%60), nil
	}

	return "", fmt.Errorf("invalid time format: %q", raw)
}
