package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrockway/beaglebone-alarm-clock/control/input"
	"github.com/jrockway/beaglebone-alarm-clock/control/screen"
)

var errScriptDone = errors.New("input script exhausted")

// script replays snapshots in order and fails once it runs out.
type script struct {
	snapshots []input.Snapshot
}

func (s *script) Sample() (input.Snapshot, error) {
	if len(s.snapshots) == 0 {
		return input.Snapshot{}, errScriptDone
	}
	next := s.snapshots[0]
	s.snapshots = s.snapshots[1:]
	return next, nil
}

type frames struct {
	rendered [][]screen.Line
	err      error
}

func (f *frames) Render(lines []screen.Line) error {
	f.rendered = append(f.rendered, lines)
	return f.err
}

func (f *frames) last() string {
	if len(f.rendered) == 0 {
		return ""
	}
	l := f.rendered[len(f.rendered)-1]
	return l[len(l)-1].Text
}

var (
	left    = input.Snapshot{Left: true}
	right   = input.Snapshot{Right: true}
	up      = input.Snapshot{Up: true}
	down    = input.Snapshot{Down: true}
	confirm = input.Snapshot{Confirm: true}
	cancel  = input.Snapshot{Cancel: true}
	idle    = input.Snapshot{}
)

type sleeps struct {
	durations []time.Duration
}

func (s *sleeps) sleep(d time.Duration) { s.durations = append(s.durations, d) }

func newEditor(in ...input.Snapshot) (*Editor, *frames, *sleeps) {
	f, z := new(frames), new(sleeps)
	return &Editor{
		Display:      f,
		Input:        &script{snapshots: in},
		Title:        "Wecker stellen",
		Debounce:     200 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		Sleep:        z.sleep,
	}, f, z
}

func TestEditWrapsMinute(t *testing.T) {
	e, f, z := newEditor(up, up, right, down, confirm)

	got, err := e.Edit(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 9, Minute: 59, Committed: true}, got)

	require.Len(t, f.rendered, 5)
	require.Equal(t, "Wecker stellen", f.rendered[0][0].Text)
	require.Equal(t, "[07] : 00", f.rendered[0][1].Text)
	require.Equal(t, "[09] : 00", f.rendered[2][1].Text)
	require.Equal(t, "09 : [00]", f.rendered[3][1].Text)
	require.Equal(t, "09 : [59]", f.last())

	// Every arrow press is debounced; confirm returns immediately.
	require.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond}, z.durations)
}

func TestEditWrapsHour(t *testing.T) {
	e, _, _ := newEditor(down, confirm)
	got, err := e.Edit(context.Background(), 0, 30)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 23, Minute: 30, Committed: true}, got)

	e, _, _ = newEditor(up, confirm)
	got, err = e.Edit(context.Background(), 23, 30)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 0, Minute: 30, Committed: true}, got)

	e, _, _ = newEditor(right, up, confirm)
	got, err = e.Edit(context.Background(), 23, 59)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 23, Minute: 0, Committed: true}, got, "minute wraps without carrying into the hour")
}

func TestEditCancelDiscards(t *testing.T) {
	e, _, _ := newEditor(up, right, down, down, cancel)
	got, err := e.Edit(context.Background(), 6, 45)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 6, Minute: 45, Committed: false}, got)
}

func TestEditLeftReselectsHour(t *testing.T) {
	e, f, _ := newEditor(right, left, up, confirm)
	got, err := e.Edit(context.Background(), 12, 0)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 13, Minute: 0, Committed: true}, got)
	require.Equal(t, "[13] : 00", f.last())
}

func TestEditFollowsButtonPriority(t *testing.T) {
	// Arrows win over confirm and cancel when held at the same time.
	e, _, _ := newEditor(input.Snapshot{Up: true, Confirm: true, Cancel: true}, input.Snapshot{Confirm: true, Cancel: true})
	got, err := e.Edit(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, Result{Hour: 2, Minute: 1, Committed: true}, got)
}

func TestEditIdlePollsWithoutDebounce(t *testing.T) {
	e, f, z := newEditor(idle, idle, idle, confirm)
	got, err := e.Edit(context.Background(), 5, 5)
	require.NoError(t, err)
	require.True(t, got.Committed)
	require.Len(t, f.rendered, 4)
	require.Equal(t, []time.Duration{20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond}, z.durations)
}

func TestIncrementThenDecrementIsIdentity(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			for _, field := range []Field{Hour, Minute} {
				s := state{hour: h, minute: m, selected: field}
				s.adjust(1)
				s.adjust(-1)
				if s.hour != h || s.minute != m {
					t.Fatalf("%s up/down from %02d:%02d ended at %02d:%02d", field, h, m, s.hour, s.minute)
				}
			}
		}
	}
}

func TestEditStopsOnDriverFailure(t *testing.T) {
	e, f, _ := newEditor(up)
	f.err = errors.New("i2c: nack")
	_, err := e.Edit(context.Background(), 7, 0)
	require.Error(t, err)

	e, _, _ = newEditor(up)
	_, err = e.Edit(context.Background(), 7, 0)
	require.ErrorIs(t, err, errScriptDone)
}

func TestEditStopsOnCancelledContext(t *testing.T) {
	e, _, _ := newEditor(idle)
	ctx, c := context.WithCancel(context.Background())
	c()
	got, err := e.Edit(ctx, 8, 15)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Result{Hour: 8, Minute: 15}, got)
}

func TestFieldString(t *testing.T) {
	require.Equal(t, "hour", Hour.String())
	require.Equal(t, "minute", Minute.String())
	require.Equal(t, "Field(9)", Field(9).String())
}
