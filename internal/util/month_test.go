package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYearMonth(t *testing.T) {
	year, month, err := ParseYearMonth("2024", "03")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.March, month)

	_, _, err = ParseYearMonth("24", "03")
	assert.Error(t, err)

	_, _, err = ParseYearMonth("2024", "3")
	assert.Error(t, err)

	_, _, err = ParseYearMonth("2024", "13")
	assert.Error(t, err)

	_, _, err = ParseYearMonth("abcd", "03")
	assert.Error(t, err)
}

func TestPreviousMonth(t *testing.T) {
	year, month := PreviousMonth(2024, time.March)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.February, month)

	year, month = PreviousMonth(2024, time.January)
	assert.Equal(t, 2023, year)
	assert.Equal(t, time.December, month)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2024, time.February)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = MonthBounds(2024, time.December)
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}
