// Package timesource yields the local wall-clock time that the alarm clock displays and compares
// against the alarm.  A time source is either zoned (an IANA location from the system's zone
// database) or a fixed UTC offset.  The fixed variant exists because small boards often ship
// without tzdata; selecting it is always explicit.
package timesource

import (
	"fmt"
	"time"
)

// ClockTime is the hour and minute of one tick.  It is a value; nothing retains a reference to
// it.
type ClockTime struct {
	Hour   int
	Minute int
}

// Valid reports whether the hour is in [0,24) and the minute is in [0,60).
func (c ClockTime) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// FromTime extracts the hour and minute of t in t's location.
func FromTime(t time.Time) ClockTime {
	h, m, _ := t.Clock()
	return ClockTime{Hour: h, Minute: m}
}

// MustClockTime returns ClockTime{h, m}, panicking if either field is out of range.  Nothing in
// this program should ever produce such a value, so seeing one is a bug.
func MustClockTime(h, m int) ClockTime {
	c := ClockTime{Hour: h, Minute: m}
	if !c.Valid() {
		panic(fmt.Sprintf("clock time out of range: hour=%d minute=%d", h, m))
	}
	return c
}

// Source yields the current local time.
type Source interface {
	Now() (ClockTime, error)
}

// Zoned is a Source that reports the time in a location loaded from the zone database.
type Zoned struct {
	Location *time.Location
	Clock    func() time.Time // time.Now if nil
}

// Now implements Source.
func (z *Zoned) Now() (ClockTime, error) {
	if z.Location == nil {
		return ClockTime{}, fmt.Errorf("zoned time source: no location")
	}
	return FromTime(now(z.Clock).In(z.Location)), nil
}

// String returns the location name.
func (z *Zoned) String() string {
	if z.Location == nil {
		return "zoned(<nil>)"
	}
	return "zoned(" + z.Location.String() + ")"
}

// FixedOffset is a Source that reports UTC shifted by a constant offset.  It knows nothing about
// daylight saving time.
type FixedOffset struct {
	Offset time.Duration
	Clock  func() time.Time // time.Now if nil
}

// Now implements Source.
func (f *FixedOffset) Now() (ClockTime, error) {
	zone := time.FixedZone(offsetName(f.Offset), int(f.Offset/time.Second))
	return FromTime(now(f.Clock).In(zone)), nil
}

// String returns the offset in UTC+HH:MM form.
func (f *FixedOffset) String() string {
	return "fixed(" + offsetName(f.Offset) + ")"
}

func offsetName(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}

// Selection is the outcome of New.  Fallback is true when the named zone could not be loaded and
// the fixed offset was chosen instead; callers must report that.
type Selection struct {
	Source   Source
	Fallback bool
	Err      error // the zone loading error that caused the fallback, if any
}

// New loads the named zone.  If loading fails and fallback is non-nil, the returned selection is a
// FixedOffset source with Fallback set.  If loading fails and fallback is nil, New returns the
// error.
func New(zone string, fallback *time.Duration) (Selection, error) {
	loc, err := time.LoadLocation(zone)
	if err == nil {
		return Selection{Source: &Zoned{Location: loc}}, nil
	}
	if fallback == nil {
		return Selection{}, fmt.Errorf("load time zone %q: %w", zone, err)
	}
	return Selection{
		Source:   &FixedOffset{Offset: *fallback},
		Fallback: true,
		Err:      err,
	}, nil
}
