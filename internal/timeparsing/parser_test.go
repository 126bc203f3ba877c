package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+6h", want: time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)},
		{input: "+1d", want: time.Date(2026, 6, 16, 12, 0, 0, 0, time.UTC)},
		{input: "+2w", want: time.Date(2026, 6, 29, 12, 0, 0, 0, time.UTC)},
		{input: "+3m", want: time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "+1y", want: time.Date(2027, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "-30d", want: time.Date(2026, 5, 16, 12, 0, 0, 0, time.UTC)},
		{input: "-2w", want: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		{input: "3m", want: time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "6h+", wantErr: true},
		{input: "++1d", wantErr: true},
		{input: "1x", wantErr: true},
		{input: "6", wantErr: true},
		{input: "h", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestIsCompactDuration(t *testing.T) {
	assert.True(t, IsCompactDuration("+2w"))
	assert.True(t, IsCompactDuration("-30d"))
	assert.True(t, IsCompactDuration("6h"))
	assert.False(t, IsCompactDuration("tomorrow"))
	assert.False(t, IsCompactDuration("2026-06-15"))
	assert.False(t, IsCompactDuration(""))
}

func TestParseNaturalLanguage(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 1, 14, 10, 0, 0, 0, time.Local)

	got, err := ParseNaturalLanguage("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Day())

	got, err = ParseNaturalLanguage("next monday", now)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.True(t, got.After(now))

	got, err = ParseNaturalLanguage("3 days ago", now)
	require.NoError(t, err)
	assert.Equal(t, 11, got.Day())

	_, err = ParseNaturalLanguage("not a date at all", now)
	assert.Error(t, err)

	_, err = ParseNaturalLanguage("", now)
	assert.Error(t, err)
}

func TestParseRelativeTime(t *testing.T) {
	now := time.Date(2026, 1, 14, 10, 0, 0, 0, time.Local)

	t.Run("compact layer wins", func(t *testing.T) {
		got, err := ParseRelativeTime("+1d", now)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Day())
		assert.Equal(t, 10, got.Hour())
	})

	t.Run("natural language layer", func(t *testing.T) {
		got, err := ParseRelativeTime("tomorrow", now)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Day())
	})

	t.Run("RFC3339 layer", func(t *testing.T) {
		got, err := ParseRelativeTime("2026-03-01T09:30:00Z", now)
		require.NoError(t, err)
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 9, got.Hour())
	})

	t.Run("date-only layer", func(t *testing.T) {
		got, err := ParseRelativeTime("2026-03-01", now)
		require.NoError(t, err)
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 1, got.Day())
	})

	t.Run("unrecognised", func(t *testing.T) {
		_, err := ParseRelativeTime("whenever", now)
		assert.Error(t, err)
	})
}
