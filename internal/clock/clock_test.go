package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandPositions(t *testing.T) {
	tests := []struct {
		name string
		in   WallTime
		want Hands
	}{
		{"three o'clock", WallTime{Hour: 3}, Hands{Hour: 15, Minute: 0, Second: 0}},
		{"half past midnight", WallTime{Hour: 0, Minute: 30, Second: 45}, Hands{Hour: 2, Minute: 30, Second: 45}},
		{"afternoon folds onto twelve hours", WallTime{Hour: 15, Minute: 0}, Hands{Hour: 15}},
		{"last minute of the sector", WallTime{Hour: 11, Minute: 59, Second: 59}, Hands{Hour: 59, Minute: 59, Second: 59}},
		{"noon", WallTime{Hour: 12, Minute: 11}, Hands{Hour: 0, Minute: 11}},
		{"creep at 12 minutes", WallTime{Hour: 6, Minute: 12}, Hands{Hour: 31, Minute: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HandPositions(tt.in))
		})
	}
}

func TestHandPositionsStayOnRing(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			got := HandPositions(WallTime{Hour: h, Minute: m, Second: m})
			assert.True(t, got.Hour >= 0 && got.Hour < RingSize, "hour pos %d at %02d:%02d", got.Hour, h, m)
		}
	}
}

func TestFromTime(t *testing.T) {
	ts := time.Date(2026, 3, 4, 21, 15, 42, 0, time.UTC) // a Wednesday
	assert.Equal(t, WallTime{Hour: 21, Minute: 15, Second: 42, Weekday: 3}, FromTime(ts))
	assert.Equal(t, 21*60+15, FromTime(ts).MinuteOfDay())
	assert.Equal(t, "21:15:42", FromTime(ts).String())
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("22:05")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 22, Minute: 5}, got)
	assert.Equal(t, 1325, got.Minutes())
	assert.Equal(t, "22:05", got.String())

	for _, bad := range []string{"", "7:00", "24:00", "12:60", "aa:bb", "12-30"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "ParseTimeOfDay(%q)", bad)
	}
}

func TestTimeOfDayText(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.UnmarshalText([]byte("06:30")))
	assert.Equal(t, TimeOfDay{Hour: 6, Minute: 30}, tod)
	out, err := tod.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "06:30", string(out))
}
