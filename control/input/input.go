// Package input samples the clock's buttons and touch sensor.  Every read is instantaneous; any
// debouncing is the caller's business.
package input

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Snapshot is the state of every control at one instant.
type Snapshot struct {
	Left, Right, Up, Down bool
	Confirm, Cancel       bool
	Touched               bool
}

// Directional reports whether any of the four arrow buttons is pressed.
func (s Snapshot) Directional() bool {
	return s.Left || s.Right || s.Up || s.Down
}

// Any reports whether any button is pressed.  The touch sensor does not count.
func (s Snapshot) Any() bool {
	return s.Directional() || s.Confirm || s.Cancel
}

// Buttons names the pin behind each button.
type Buttons struct {
	Left, Right, Up, Down gpio.PinIn
	Confirm, Cancel       gpio.PinIn
}

// Opts configures pin polarity.  Active-low inputs are pulled up, active-high inputs are pulled
// down.
type Opts struct {
	ButtonsActiveLow bool
	TouchActiveLow   bool
}

type control struct {
	name      string
	pin       gpio.PinIn
	activeLow bool
}

func (c control) pressed() bool {
	l := c.pin.Read()
	if c.activeLow {
		return l == gpio.Low
	}
	return l == gpio.High
}

func (c control) setup() error {
	pull := gpio.PullDown
	if c.activeLow {
		pull = gpio.PullUp
	}
	if err := c.pin.In(pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("configure %s button on %s: %w", c.name, c.pin, err)
	}
	return nil
}

// Panel is the clock's six buttons plus its touch sensor.
type Panel struct {
	left, right, up, down, confirm, cancel control
	touch                                  control
}

// NewPanel configures every pin as an input.  A nil touch pin is allowed and reads as never
// touched; every button is required.
func NewPanel(b Buttons, touch gpio.PinIn, o Opts) (*Panel, error) {
	p := &Panel{
		left:    control{name: "left", pin: b.Left, activeLow: o.ButtonsActiveLow},
		right:   control{name: "right", pin: b.Right, activeLow: o.ButtonsActiveLow},
		up:      control{name: "up", pin: b.Up, activeLow: o.ButtonsActiveLow},
		down:    control{name: "down", pin: b.Down, activeLow: o.ButtonsActiveLow},
		confirm: control{name: "confirm", pin: b.Confirm, activeLow: o.ButtonsActiveLow},
		cancel:  control{name: "cancel", pin: b.Cancel, activeLow: o.ButtonsActiveLow},
		touch:   control{name: "touch", pin: touch, activeLow: o.TouchActiveLow},
	}
	for _, c := range p.buttons() {
		if c.pin == nil {
			return nil, fmt.Errorf("%s button: no pin", c.name)
		}
		if err := c.setup(); err != nil {
			return nil, err
		}
	}
	if touch != nil {
		if err := p.touch.setup(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Panel) buttons() []control {
	return []control{p.left, p.right, p.up, p.down, p.confirm, p.cancel}
}

// Sample reads every control once.
func (p *Panel) Sample() (Snapshot, error) {
	s := Snapshot{
		Left:    p.left.pressed(),
		Right:   p.right.pressed(),
		Up:      p.up.pressed(),
		Down:    p.down.pressed(),
		Confirm: p.confirm.pressed(),
		Cancel:  p.cancel.pressed(),
	}
	if p.touch.pin != nil {
		s.Touched = p.touch.pressed()
	}
	return s, nil
}

// IsActive reads the touch sensor.
func (p *Panel) IsActive() (bool, error) {
	if p.touch.pin == nil {
		return false, nil
	}
	return p.touch.pressed(), nil
}
