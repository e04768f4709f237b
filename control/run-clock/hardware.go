package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/jrockway/beaglebone-alarm-clock/control/clock"
	"github.com/jrockway/beaglebone-alarm-clock/control/config"
	"github.com/jrockway/beaglebone-alarm-clock/control/input"
	"github.com/jrockway/beaglebone-alarm-clock/control/leds"
	"github.com/jrockway/beaglebone-alarm-clock/control/logger"
	"github.com/jrockway/beaglebone-alarm-clock/control/screen"
	"github.com/jrockway/beaglebone-alarm-clock/control/sounder"
)

// indicator is what both LED implementations offer.
type indicator interface {
	clock.Indicator
	On() bool
}

// hardware is every device the clock talks to.
type hardware struct {
	screen    *screen.Screen
	panel     *input.Panel
	indicator indicator
	sounder   *sounder.Sounder

	closers []io.Closer
}

func (h *hardware) Close() error {
	var errs []string
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close devices: %s", strings.Join(errs, "; "))
	}
	return nil
}

func lookupPin(field, name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, &config.Error{Field: field, Err: fmt.Errorf("no gpio pin named %q", name)}
	}
	return p, nil
}

// openHardware opens every device named by cfg.  Anything that doesn't exist is a configuration
// error; nothing is half-opened on failure.
func openHardware(ctx context.Context, cfg *config.Config) (_ *hardware, retErr error) {
	h := new(hardware)
	defer func() {
		if retErr != nil {
			h.Close()
		}
	}()

	var bus i2c.Bus
	if cfg.Display.I2CBus != "none" {
		b, err := i2creg.Open(cfg.Display.I2CBus)
		if err != nil {
			return nil, &config.Error{Field: "display.i2c_bus", Err: fmt.Errorf("open i2c bus %q: %w", cfg.Display.I2CBus, err)}
		}
		h.closers = append(h.closers, b)
		bus = b
	} else {
		logger.Warnf(ctx, "running without a display; the frame is only visible on the debug server")
	}
	s, err := screen.NewScreen(bus, screen.Opts{
		Width:       cfg.Display.Width,
		Height:      cfg.Display.Height,
		SmallPoints: cfg.Display.SmallPoints,
		LargePoints: cfg.Display.LargePoints,
	})
	if err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	h.screen = s

	var buttons input.Buttons
	for _, b := range []struct {
		field string
		name  string
		dst   *gpio.PinIn
	}{
		{"buttons.left", cfg.Buttons.Left, &buttons.Left},
		{"buttons.right", cfg.Buttons.Right, &buttons.Right},
		{"buttons.up", cfg.Buttons.Up, &buttons.Up},
		{"buttons.down", cfg.Buttons.Down, &buttons.Down},
		{"buttons.confirm", cfg.Buttons.Confirm, &buttons.Confirm},
		{"buttons.cancel", cfg.Buttons.Cancel, &buttons.Cancel},
	} {
		p, err := lookupPin(b.field, b.name)
		if err != nil {
			return nil, err
		}
		*b.dst = p
	}
	var touch gpio.PinIn
	if cfg.Touch.Pin != "" {
		p, err := lookupPin("touch.pin", cfg.Touch.Pin)
		if err != nil {
			return nil, err
		}
		touch = p
	} else {
		logger.Warnf(ctx, "no touch sensor configured; the indicator will stay off")
	}
	panel, err := input.NewPanel(buttons, touch, input.Opts{
		ButtonsActiveLow: *cfg.Buttons.ActiveLow,
		TouchActiveLow:   cfg.Touch.ActiveLow,
	})
	if err != nil {
		return nil, fmt.Errorf("init buttons: %w", err)
	}
	h.panel = panel

	switch {
	case len(cfg.LEDs.Pins) > 0:
		var pins []gpio.PinOut
		for i, name := range cfg.LEDs.Pins {
			p, err := lookupPin(fmt.Sprintf("leds.pins[%d]", i), name)
			if err != nil {
				return nil, err
			}
			pins = append(pins, p)
		}
		ind, err := leds.NewPins(pins...)
		if err != nil {
			return nil, fmt.Errorf("init leds: %w", err)
		}
		h.indicator = ind
	default:
		var port spi.Port
		if cfg.LEDs.SPI != "" {
			p, err := spireg.Open(cfg.LEDs.SPI)
			if err != nil {
				return nil, &config.Error{Field: "leds.spi", Err: fmt.Errorf("open spi port %q: %w", cfg.LEDs.SPI, err)}
			}
			h.closers = append(h.closers, p)
			port = p
		} else {
			logger.Warnf(ctx, "no indicator leds configured")
		}
		ind, err := leds.NewAPA102(port, cfg.LEDs.Color.NRGBA())
		if err != nil {
			return nil, fmt.Errorf("init leds: %w", err)
		}
		h.indicator = ind
	}

	buzzer, err := lookupPin("speaker.pin", cfg.Speaker.Pin)
	if err != nil {
		return nil, err
	}
	snd, err := sounder.New(buzzer, sounder.Opts{
		Frequency:    physic.Frequency(cfg.Speaker.Frequency) * physic.Hertz,
		Beep:         cfg.Speaker.Beep.D(),
		Pause:        sounder.DefaultOpts.Pause,
		Beeps:        sounder.DefaultOpts.Beeps,
		Phrase:       cfg.Messages.WakeUp,
		SpeakCommand: cfg.Speaker.SpeakCommand,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	if !snd.Speaks() {
		logger.Warnf(ctx, "no speak_command configured; the alarm will only beep")
	}
	h.sounder = snd
	return h, nil
}
