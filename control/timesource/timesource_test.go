package timesource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockTimeValid(t *testing.T) {
	t.Parallel()

	require.True(t, ClockTime{Hour: 0, Minute: 0}.Valid())
	require.True(t, ClockTime{Hour: 23, Minute: 59}.Valid())
	require.False(t, ClockTime{Hour: 24, Minute: 0}.Valid())
	require.False(t, ClockTime{Hour: 0, Minute: 60}.Valid())
	require.False(t, ClockTime{Hour: -1, Minute: 0}.Valid())

	require.Equal(t, "07:05", ClockTime{Hour: 7, Minute: 5}.String())
}

func TestMustClockTimePanicsOutOfRange(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() { MustClockTime(23, 59) })
	require.Panics(t, func() { MustClockTime(12, 60) })
}

func TestFixedOffset(t *testing.T) {
	t.Parallel()

	utc := time.Date(2026, 10, 14, 22, 45, 30, 0, time.UTC)
	src := &FixedOffset{Offset: 2 * time.Hour, Clock: func() time.Time { return utc }}

	got, err := src.Now()
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 0, Minute: 45}, got)
	require.Equal(t, "fixed(UTC+02:00)", src.String())

	west := &FixedOffset{Offset: -(3*time.Hour + 30*time.Minute), Clock: func() time.Time { return utc }}
	got, err = west.Now()
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 19, Minute: 15}, got)
	require.Equal(t, "fixed(UTC-03:30)", west.String())
}

func TestZoned(t *testing.T) {
	t.Parallel()

	utc := time.Date(2026, 10, 14, 6, 59, 0, 0, time.UTC)
	src := &Zoned{Location: time.UTC, Clock: func() time.Time { return utc }}

	got, err := src.Now()
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 6, Minute: 59}, got)

	_, err = (&Zoned{}).Now()
	require.Error(t, err)
}

func TestNewSelectsZoneOrExplicitFallback(t *testing.T) {
	t.Parallel()

	sel, err := New("UTC", nil)
	require.NoError(t, err)
	require.False(t, sel.Fallback)
	require.IsType(t, &Zoned{}, sel.Source)

	_, err = New("Nowhere/Atlantis", nil)
	require.Error(t, err)

	offset := 2 * time.Hour
	sel, err = New("Nowhere/Atlantis", &offset)
	require.NoError(t, err)
	require.True(t, sel.Fallback)
	require.Error(t, sel.Err)
	require.Equal(t, &FixedOffset{Offset: offset}, sel.Source)
}
