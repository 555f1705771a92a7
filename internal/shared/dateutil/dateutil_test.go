package dateutil_test

import (
	"testing"
	"time"

	"go-elms/internal/shared/dateutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestInclusiveDayCount(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"single day", date(2025, 11, 5), date(2025, 11, 5), 1},
		{"three days", date(2025, 11, 5), date(2025, 11, 7), 3},
		{"inverted range", date(2025, 11, 7), date(2025, 11, 5), 0},
		{"across month end", date(2025, 1, 30), date(2025, 2, 2), 4},
		{"leap day included", date(2024, 2, 28), date(2024, 3, 1), 3},
		{"time of day ignored", time.Date(2025, 11, 5, 23, 30, 0, 0, time.UTC), time.Date(2025, 11, 6, 0, 15, 0, 0, time.UTC), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dateutil.InclusiveDayCount(tt.start, tt.end))
		})
	}
}

func TestInclusiveDayCount_MatchesDiffPlusOne(t *testing.T) {
	start := date(2025, 1, 1)
	for n := 0; n < 400; n++ {
		end := start.AddDate(0, 0, n)
		assert.Equal(t, n+1, dateutil.InclusiveDayCount(start, end), "offset %d", n)
	}
}

func TestInclusiveDayCount_DaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	start := time.Date(2025, 3, 29, 0, 0, 0, 0, loc)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, loc)

	assert.Equal(t, 3, dateutil.InclusiveDayCount(start, end))
}

func TestWeekdayCount(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"monday to sunday", date(2025, 11, 3), date(2025, 11, 9), 5},
		{"weekend only", date(2025, 11, 8), date(2025, 11, 9), 0},
		{"single weekday", date(2025, 11, 5), date(2025, 11, 5), 1},
		{"wednesday to tuesday", date(2025, 11, 5), date(2025, 11, 11), 5},
		{"friday to monday", date(2025, 11, 7), date(2025, 11, 10), 2},
		{"two weeks and a day", date(2025, 11, 3), date(2025, 11, 17), 11},
		{"inverted range", date(2025, 11, 9), date(2025, 11, 3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dateutil.WeekdayCount(tt.start, tt.end))
		})
	}
}

func TestWeekdayCount_MatchesDayWalk(t *testing.T) {
	start := date(2025, 10, 1)
	for offset := 0; offset < 7; offset++ {
		s := start.AddDate(0, 0, offset)
		for n := 0; n < 30; n++ {
			e := s.AddDate(0, 0, n)
			want := 0
			for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
				if dateutil.IsWeekday(d) {
					want++
				}
			}
			assert.Equal(t, want, dateutil.WeekdayCount(s, e), "%s..%s", s.Format("2006-01-02"), e.Format("2006-01-02"))
		}
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "05/11/2025", dateutil.FormatDate(date(2025, 11, 5)))
	assert.Equal(t, "N/A", dateutil.FormatDate(time.Time{}))
	assert.Equal(t, "01/11/2025 - 09:30", dateutil.FormatDateTime(time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2025-11-05", dateutil.FormatISO(date(2025, 11, 5)))
	assert.Equal(t, "", dateutil.FormatISO(time.Time{}))
}

func TestParseDate(t *testing.T) {
	t.Run("success iso date", func(t *testing.T) {
		got, err := dateutil.ParseDate("2025-11-05")
		require.NoError(t, err)
		assert.Equal(t, date(2025, 11, 5), got)
	})

	t.Run("success rfc3339 truncated", func(t *testing.T) {
		got, err := dateutil.ParseDate("2025-11-05T08:30:00Z")
		require.NoError(t, err)
		assert.Equal(t, date(2025, 11, 5), got)
	})

	t.Run("negative garbage", func(t *testing.T) {
		_, err := dateutil.ParseDate("05/11/2025")
		assert.Error(t, err)
	})
}
