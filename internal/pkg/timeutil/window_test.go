package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsWithinHours(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	require.False(t, IsWithinHours(nil, 6, now))
	require.False(t, IsWithinHours(&time.Time{}, 6, now))
	require.True(t, IsWithinHours(ago(5*time.Hour), 6, now))
	require.True(t, IsWithinHours(ago(6*time.Hour), 6, now))
	require.False(t, IsWithinHours(ago(6*time.Hour+time.Minute), 6, now))
	require.True(t, IsWithinHours(ago(-time.Hour), 6, now))
}

func TestIsWithinHours_ClockAdvance(t *testing.T) {
	ts := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	require.True(t, IsWithinHours(&ts, 6, ts.Add(5*time.Hour)))
	require.False(t, IsWithinHours(&ts, 6, ts.Add(7*time.Hour)))
}

func TestRelativeLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	require.Equal(t, "", RelativeLabel(nil, now))
	require.Equal(t, "刚刚", RelativeLabel(ago(10*time.Second), now))
	require.Equal(t, "5分钟前", RelativeLabel(ago(5*time.Minute), now))
	require.Equal(t, "3小时前", RelativeLabel(ago(3*time.Hour+20*time.Minute), now))
	require.Equal(t, "2天前", RelativeLabel(ago(50*time.Hour), now))
	require.Equal(t, "2026-02-20", RelativeLabel(ago(18*24*time.Hour), now))
}
