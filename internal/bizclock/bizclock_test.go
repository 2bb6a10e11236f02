package bizclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var msk = time.FixedZone("MSK", 3*60*60)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, msk)
	require.NoError(t, err)
	return ts
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"10:00-23:00", false},
		{" 09:30-18:00 ", false},
		{"00:00-23:59", false},
		{"23:00-10:00", true}, // crosses midnight
		{"10:00-10:00", true}, // empty window
		{"10:00", true},
		{"banana", true},
		{"25:00-26:00", true},
		{"10:60-11:00", true},
	}
	for _, tc := range tests {
		_, err := ParseWindow(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
		} else {
			assert.NoError(t, err, tc.in)
		}
	}
}

func TestWindowString(t *testing.T) {
	w, err := ParseWindow("9:05-18:30")
	require.NoError(t, err)
	assert.Equal(t, "09:05-18:30", w.String())
}

func TestSecondsInsideWindow(t *testing.T) {
	w, err := ParseWindow("10:00-23:00")
	require.NoError(t, err)

	sec, ok := w.Seconds(at(t, "2025-03-10 11:00:00"), at(t, "2025-03-10 12:30:00"), msk)
	require.True(t, ok)
	assert.Equal(t, 90*60, sec)
}

func TestSecondsFullyOutsideWindow(t *testing.T) {
	w, err := ParseWindow("10:00-23:00")
	require.NoError(t, err)

	sec, ok := w.Seconds(at(t, "2025-03-10 23:15:00"), at(t, "2025-03-10 23:45:00"), msk)
	require.True(t, ok)
	assert.Equal(t, 0, sec)
}

func TestSecondsCrossMidnight(t *testing.T) {
	w, err := ParseWindow("10:00-23:00")
	require.NoError(t, err)

	// 22:00 -> 23:00 on day one, 10:00 -> 11:00 on day two. The idle
	// night does not tick.
	sec, ok := w.Seconds(at(t, "2025-03-10 22:00:00"), at(t, "2025-03-11 11:00:00"), msk)
	require.True(t, ok)
	assert.Equal(t, 2*60*60, sec)
}

func TestSecondsMultiDaySpan(t *testing.T) {
	w, err := ParseWindow("10:00-12:00")
	require.NoError(t, err)

	// Three full two-hour windows plus one hour on the last day.
	sec, ok := w.Seconds(at(t, "2025-03-10 09:00:00"), at(t, "2025-03-13 11:00:00"), msk)
	require.True(t, ok)
	assert.Equal(t, 3*2*60*60+60*60, sec)
}

func TestSecondsEndBeforeStart(t *testing.T) {
	w, err := ParseWindow("10:00-23:00")
	require.NoError(t, err)

	_, ok := w.Seconds(at(t, "2025-03-10 12:00:00"), at(t, "2025-03-10 11:00:00"), msk)
	assert.False(t, ok)
}

func TestSecondsClipsStartBeforeWindow(t *testing.T) {
	w, err := ParseWindow("10:00-23:00")
	require.NoError(t, err)

	sec, ok := w.Seconds(at(t, "2025-03-10 08:00:00"), at(t, "2025-03-10 10:30:00"), msk)
	require.True(t, ok)
	assert.Equal(t, 30*60, sec)
}
