// Package editor implements the modal screen for setting the alarm's hour and minute.
package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/jrockway/beaglebone-alarm-clock/control/input"
	"github.com/jrockway/beaglebone-alarm-clock/control/screen"
	"github.com/jrockway/beaglebone-alarm-clock/control/timesource"
)

// Field is the part of the alarm time being adjusted.
type Field int

const (
	Hour Field = iota
	Minute
)

func (f Field) String() string {
	switch f {
	case Hour:
		return "hour"
	case Minute:
		return "minute"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// Display paints a frame.
type Display interface {
	Render(lines []screen.Line) error
}

// Poller samples the buttons.
type Poller interface {
	Sample() (input.Snapshot, error)
}

// Result is what the operator left the editor with.  If Committed is false, Hour and Minute are
// the values the editor was started with.
type Result struct {
	Hour, Minute int
	Committed    bool
}

// Layout of the editing screen.
const (
	titleY   = 0
	settingY = 24
)

// Editor is the alarm-setting screen.  The zero value is not usable; fill in Display and Input.
type Editor struct {
	Display Display
	Input   Poller
	Title   string

	Debounce     time.Duration       // Cool-down after every accepted arrow press.
	PollInterval time.Duration       // Pause between polls while nothing is pressed.
	Sleep        func(time.Duration) // time.Sleep if nil
}

// state is the editor's own copy of the time being set.
type state struct {
	hour, minute int
	selected     Field
}

func (s *state) adjust(delta int) {
	switch s.selected {
	case Hour:
		s.hour = wrap(s.hour+delta, 24)
	case Minute:
		s.minute = wrap(s.minute+delta, 60)
	}
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}

// lines renders the editing screen.  The selected field is shown in brackets.
func (s *state) lines(title string) []screen.Line {
	h, m := fmt.Sprintf("%02d", s.hour), fmt.Sprintf("%02d", s.minute)
	switch s.selected {
	case Hour:
		h = "[" + h + "]"
	case Minute:
		m = "[" + m + "]"
	}
	return []screen.Line{
		{Text: title, Size: screen.Small, Y: titleY},
		{Text: h + " : " + m, Size: screen.Large, Y: settingY},
	}
}

// Edit runs the editor until confirm or cancel is pressed, starting from hour:minute with the hour
// selected.  There is no timeout.  Edit returns early only if ctx is done or a driver fails.
func (e *Editor) Edit(ctx context.Context, hour, minute int) (Result, error) {
	s := state{hour: hour, minute: minute, selected: Hour}
	for {
		if err := ctx.Err(); err != nil {
			return Result{Hour: hour, Minute: minute}, fmt.Errorf("editing alarm: %w", err)
		}
		if err := e.Display.Render(s.lines(e.Title)); err != nil {
			return Result{Hour: hour, Minute: minute}, fmt.Errorf("render editor: %w", err)
		}
		in, err := e.Input.Sample()
		if err != nil {
			return Result{Hour: hour, Minute: minute}, fmt.Errorf("sample input: %w", err)
		}
		switch {
		case in.Left:
			s.selected = Hour
		case in.Right:
			s.selected = Minute
		case in.Up:
			s.adjust(1)
		case in.Down:
			s.adjust(-1)
		case in.Confirm:
			timesource.MustClockTime(s.hour, s.minute)
			return Result{Hour: s.hour, Minute: s.minute, Committed: true}, nil
		case in.Cancel:
			return Result{Hour: hour, Minute: minute}, nil
		default:
			e.sleep(e.PollInterval)
			continue
		}
		e.sleep(e.Debounce)
	}
}

func (e *Editor) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if e.Sleep == nil {
		time.Sleep(d)
		return
	}
	e.Sleep(d)
}
