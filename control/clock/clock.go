// Package clock runs the alarm clock: it shows the time, interprets the buttons, and sounds the
// alarm when its minute comes around.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/trace"

	"github.com/jrockway/beaglebone-alarm-clock/control/editor"
	"github.com/jrockway/beaglebone-alarm-clock/control/input"
	"github.com/jrockway/beaglebone-alarm-clock/control/logger"
	"github.com/jrockway/beaglebone-alarm-clock/control/screen"
	"github.com/jrockway/beaglebone-alarm-clock/control/timesource"
)

var (
	ticksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarm_clock_ticks_total",
		Help: "count of completed control loop iterations",
	})

	alarmsFiredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarm_clock_alarms_fired_total",
		Help: "count of times the alarm sequence was played",
	})

	controlsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarm_clock_controls_total",
		Help: "count of button presses acted on by the main screen, by control",
	}, []string{"control"})

	armedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alarm_clock_alarm_armed",
		Help: "1 if the alarm is armed, 0 otherwise",
	})
)

// TimeSource yields the current local time.
type TimeSource interface {
	Now() (timesource.ClockTime, error)
}

// Display paints a frame of centered lines.  An empty frame clears the screen.
type Display interface {
	Render(lines []screen.Line) error
}

// Poller samples the buttons.
type Poller interface {
	Sample() (input.Snapshot, error)
}

// TouchSensor reads the touch sensor.
type TouchSensor interface {
	IsActive() (bool, error)
}

// Indicator is the LED pair that mirrors the touch sensor.
type Indicator interface {
	SetAll(on bool) error
}

// Sounder plays the alarm.  Play blocks until the sequence is over.
type Sounder interface {
	Play() error
}

// AlarmEditor runs the modal alarm-setting screen.
type AlarmEditor interface {
	Edit(ctx context.Context, hour, minute int) (editor.Result, error)
}

// DriverError is a failure of one of the clock's devices.  There is nothing sensible a clock
// without a working display or buttons can do, so these end the program.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// AlarmSetting is the one alarm.  It lives only in memory.
type AlarmSetting struct {
	Enabled      bool
	Hour, Minute int
}

// Matches reports whether the alarm is armed for t.
func (a AlarmSetting) Matches(t timesource.ClockTime) bool {
	return a.Enabled && a.Hour == t.Hour && a.Minute == t.Minute
}

// Messages are the strings shown on the main screen.
type Messages struct {
	AlarmOff string // Summary line while disarmed.
	AlarmOn  string // Prefix of the summary line while armed; followed by HH:MM.
	Armed    string // Shown after confirm arms the alarm.
	Disarmed string // Shown after confirm disarms the alarm.
	Exiting  string // Shown after cancel.
}

// DefaultMessages are the German strings the clock shows by default.
var DefaultMessages = Messages{
	AlarmOff: "Alarm aus",
	AlarmOn:  "Alarm: ",
	Armed:    "Alarm EIN",
	Disarmed: "Alarm AUS",
	Exiting:  "Beende Programm...",
}

// Layout of the main screen.
const (
	timeY    = 4
	summaryY = 40
	statusY  = 26
)

// Options are the parts the controller is built from.  Every device is required.
type Options struct {
	Time      TimeSource
	Display   Display
	Input     Poller
	Touch     TouchSensor
	Indicator Indicator
	Sounder   Sounder
	Editor    AlarmEditor

	Messages  Messages
	Dwell     time.Duration       // How long a status message stays up.
	EditPause time.Duration       // Pause after leaving the editor, so a held button isn't read again.
	Sleep     func(time.Duration) // time.Sleep if nil

	// Report, if set, is called at the end of every tick with the time shown and the alarm.
	Report func(now timesource.ClockTime, alarm AlarmSetting)
}

// Controller owns the alarm setting and runs one tick of the control loop at a time.  It is not
// safe for concurrent use; the whole clock is one loop.
type Controller struct {
	time      TimeSource
	display   Display
	input     Poller
	touch     TouchSensor
	indicator Indicator
	sounder   Sounder
	editor    AlarmEditor

	messages  Messages
	dwell     time.Duration
	editPause time.Duration
	sleep     func(time.Duration)
	report    func(timesource.ClockTime, AlarmSetting)

	events trace.EventLog
	alarm  AlarmSetting
}

// New returns a controller whose alarm is set to the current time and disarmed.
func New(o Options) (*Controller, error) {
	for name, dev := range map[string]interface{}{
		"time source":  o.Time,
		"display":      o.Display,
		"input":        o.Input,
		"touch sensor": o.Touch,
		"indicator":    o.Indicator,
		"sounder":      o.Sounder,
		"editor":       o.Editor,
	} {
		if dev == nil {
			return nil, fmt.Errorf("new controller: no %s", name)
		}
	}
	c := &Controller{
		time:      o.Time,
		display:   o.Display,
		input:     o.Input,
		touch:     o.Touch,
		indicator: o.Indicator,
		sounder:   o.Sounder,
		editor:    o.Editor,
		messages:  o.Messages,
		dwell:     o.Dwell,
		editPause: o.EditPause,
		sleep:     o.Sleep,
		report:    o.Report,
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	now, err := c.now()
	if err != nil {
		return nil, err
	}
	c.alarm = AlarmSetting{Enabled: false, Hour: now.Hour, Minute: now.Minute}
	armedGauge.Set(0)
	c.events = trace.NewEventLog("clock", "controller")
	c.events.Printf("started; alarm %v disarmed", now)
	return c, nil
}

// Close releases the controller's event log.
func (c *Controller) Close() {
	c.events.Finish()
}

// Alarm returns a copy of the current alarm setting.
func (c *Controller) Alarm() AlarmSetting {
	return c.alarm
}

func (c *Controller) now() (timesource.ClockTime, error) {
	t, err := c.time.Now()
	if err != nil {
		return timesource.ClockTime{}, &DriverError{Op: "read time", Err: err}
	}
	return t, nil
}

func (c *Controller) render(op string, lines ...screen.Line) error {
	if err := c.display.Render(lines); err != nil {
		return &DriverError{Op: op, Err: err}
	}
	return nil
}

func (c *Controller) summary() string {
	if !c.alarm.Enabled {
		return c.messages.AlarmOff
	}
	return c.messages.AlarmOn + fmt.Sprintf("%02d:%02d", c.alarm.Hour, c.alarm.Minute)
}

func (c *Controller) drawMain(now timesource.ClockTime) error {
	return c.render("render main screen",
		screen.Line{Text: now.String(), Size: screen.Large, Y: timeY},
		screen.Line{Text: c.summary(), Size: screen.Small, Y: summaryY},
	)
}

// Tick runs one iteration of the control loop.  done is true once the operator has asked the
// clock to exit via cancel.  Any error is a *DriverError or comes from ctx, and is fatal.
func (c *Controller) Tick(ctx context.Context) (done bool, err error) {
	now, err := c.now()
	if err != nil {
		return false, err
	}
	if err := c.drawMain(now); err != nil {
		return false, err
	}

	touched, err := c.touch.IsActive()
	if err != nil {
		return false, &DriverError{Op: "read touch sensor", Err: err}
	}
	if err := c.indicator.SetAll(touched); err != nil {
		return false, &DriverError{Op: "set indicator", Err: err}
	}

	in, err := c.input.Sample()
	if err != nil {
		return false, &DriverError{Op: "sample input", Err: err}
	}
	switch {
	case in.Confirm:
		controlsCounter.WithLabelValues("confirm").Inc()
		if now, err = c.toggle(ctx); err != nil {
			return false, err
		}
	case in.Cancel:
		controlsCounter.WithLabelValues("cancel").Inc()
		return true, c.exit(ctx)
	case in.Directional():
		controlsCounter.WithLabelValues("arrow").Inc()
		if err := c.edit(ctx); err != nil {
			return false, err
		}
	}

	if c.alarm.Matches(now) {
		if err := c.fire(ctx, now); err != nil {
			return false, err
		}
	}
	if c.report != nil {
		c.report(now, c.alarm)
	}
	ticksCounter.Inc()
	return false, nil
}

func (c *Controller) setEnabled(enabled bool) {
	c.alarm.Enabled = enabled
	if enabled {
		armedGauge.Set(1)
	} else {
		armedGauge.Set(0)
	}
}

// toggle arms or disarms the alarm, shows the new state, and redraws the main screen at the time
// it returns.
func (c *Controller) toggle(ctx context.Context) (timesource.ClockTime, error) {
	c.setEnabled(!c.alarm.Enabled)
	msg := c.messages.Disarmed
	if c.alarm.Enabled {
		msg = c.messages.Armed
	}
	c.events.Printf("confirm: alarm %02d:%02d enabled=%v", c.alarm.Hour, c.alarm.Minute, c.alarm.Enabled)
	logger.InfoKV(ctx, "alarm toggled", "enabled", c.alarm.Enabled, "alarm", fmt.Sprintf("%02d:%02d", c.alarm.Hour, c.alarm.Minute))

	if err := c.render("render status", screen.Line{Text: msg, Size: screen.Small, Y: statusY}); err != nil {
		return timesource.ClockTime{}, err
	}
	c.sleep(c.dwell)
	now, err := c.now()
	if err != nil {
		return timesource.ClockTime{}, err
	}
	if err := c.drawMain(now); err != nil {
		return timesource.ClockTime{}, err
	}
	return now, nil
}

func (c *Controller) exit(ctx context.Context) error {
	c.events.Printf("cancel: exiting")
	logger.InfoKV(ctx, "exit requested")
	if err := c.render("render exit message", screen.Line{Text: c.messages.Exiting, Size: screen.Small, Y: statusY}); err != nil {
		return err
	}
	c.sleep(c.dwell)
	return c.render("clear screen")
}

func (c *Controller) edit(ctx context.Context) error {
	res, err := c.editor.Edit(ctx, c.alarm.Hour, c.alarm.Minute)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return &DriverError{Op: "edit alarm", Err: err}
	}
	if res.Committed {
		t := timesource.MustClockTime(res.Hour, res.Minute)
		c.alarm.Hour, c.alarm.Minute = t.Hour, t.Minute
		c.setEnabled(true)
		c.events.Printf("edit committed: alarm %v armed", t)
		logger.InfoKV(ctx, "alarm set", "alarm", t.String())
	} else {
		c.events.Printf("edit discarded")
		logger.InfoKV(ctx, "alarm edit discarded")
	}
	c.sleep(c.editPause)
	return nil
}

func (c *Controller) fire(ctx context.Context, now timesource.ClockTime) error {
	c.events.Printf("alarm %v firing", now)
	logger.InfoKV(ctx, "alarm firing", "alarm", now.String())
	alarmsFiredCounter.Inc()
	err := c.sounder.Play()
	c.setEnabled(false)
	if err != nil {
		c.events.Errorf("play alarm: %v", err)
		return &DriverError{Op: "play alarm", Err: err}
	}
	return nil
}

// Run ticks until the operator exits, a device fails, or ctx is done.  wait is called between
// ticks and decides the cadence; see WaitForTick.  Run returns nil only when the operator exits.
func (c *Controller) Run(ctx context.Context, wait func(context.Context) error) error {
	for {
		done, err := c.Tick(ctx)
		if err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		if done {
			return nil
		}
		if err := wait(ctx); err != nil {
			return err
		}
	}
}
