package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseYearMonth validates the strict "2024"/"04" wire form used by the
// month endpoints and shard paths.
func ParseYearMonth(year, month string) (int, time.Month, error) {
	if len(year) != 4 {
		return 0, 0, fmt.Errorf("year %q must be 4 digits", year)
	}
	if len(month) != 2 {
		return 0, 0, fmt.Errorf("month %q must be 2 digits", month)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, 0, fmt.Errorf("year %q must be numeric", year)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q must be numeric", month)
	}
	if m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("month %q out of range", month)
	}
	return y, time.Month(m), nil
}

// PreviousMonth returns the year and month preceding the given one.
func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// MonthBounds returns the first day of the month and the first day of
// the following month, both at midnight UTC.
func MonthBounds(year int, month time.Month) (start, end time.Time) {
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
