package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]string{
		"09:30":           "09:30:00",
		"17:45:12":        "17:45:12",
		"08:00:00.123456": "08:00:00",
		"24:00":           "24:00:00",
		"24:00:00":        "24:00:00",
		"":                "",
	}
	for raw, want := range cases {
		got, err := ParseTimeOfDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got.String(), raw)
	}

	_, err := ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("24:00:01")
	assert.Error(t, err)
}

func TestTimeOfDayScanAndValue(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("10:15:00")))
	assert.Equal(t, NewTimeOfDay(10, 15, 0), tod)

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 23, 59, 59, 0, time.UTC)))
	v, err := tod.Value()
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", v)

	require.NoError(t, tod.Scan([]byte("24:00:00")))
	assert.Equal(t, NewTimeOfDay(24, 0, 0), tod)
	v, err = tod.Value()
	require.NoError(t, err)
	assert.Equal(t, "24:00:00", v)

	require.NoError(t, tod.Scan(nil))
	v, err = tod.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, tod.Scan(42))
}

func TestTimeOfDayOn(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	got := NewTimeOfDay(16, 30, 0).On(day, jakarta)
	assert.Equal(t, time.Date(2025, 3, 14, 16, 30, 0, 0, jakarta), got)
}

func TestTimeOfDayMidnightRollsOver(t *testing.T) {
	day := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	got := NewTimeOfDay(24, 0, 0).On(day, time.UTC)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), got)
}
