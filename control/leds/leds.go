// Package leds drives the pair of indicator LEDs that light up while the touch sensor is held.
package leds

import (
	"fmt"
	"image/color"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/apa102"
)

// pairSize is the number of LEDs in the indicator.
const pairSize = 2

// Green is the indicator's default color.
var Green = color.NRGBA{R: 0, G: 0xff, B: 0, A: 0xff}

// APA102 is an indicator made of two APA102 pixels on an SPI bus.
type APA102 struct {
	leds  *apa102.Dev
	color color.NRGBA

	mu sync.Mutex
	on bool // must hold mu to read or write.
}

// NewAPA102 returns an indicator that lights both pixels in c.  A nil port produces an indicator
// that only tracks its state.
func NewAPA102(p spi.Port, c color.NRGBA) (*APA102, error) {
	a := &APA102{color: c}
	if p == nil {
		return a, nil
	}
	opts := &apa102.Opts{
		NumPixels:        pairSize,
		Intensity:        255,
		Temperature:      apa102.NeutralTemp,
		DisableGlobalPWM: true,
	}
	leds, err := apa102.New(p, opts)
	if err != nil {
		return nil, fmt.Errorf("init apa102: %w", err)
	}
	a.leds = leds
	return a, nil
}

// SetAll turns both pixels on in the configured color, or off.
func (a *APA102) SetAll(on bool) error {
	a.mu.Lock()
	a.on = on
	a.mu.Unlock()
	if a.leds == nil {
		return nil
	}
	pixels := make([]color.NRGBA, pairSize)
	for i := range pixels {
		pixels[i] = color.NRGBA{A: 0xff}
		if on {
			pixels[i] = a.color
		}
	}
	if _, err := a.leds.Write(apa102.ToRGB(pixels)); err != nil {
		return fmt.Errorf("write to apa102 strand: %w", err)
	}
	return nil
}

// On reports the last state requested by SetAll.
func (a *APA102) On() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.on
}

// Pins is an indicator made of single-color LEDs wired directly to GPIO pins.
type Pins struct {
	pins []gpio.PinOut
	on   bool
}

// NewPins returns an indicator over pins, all of which start off.
func NewPins(pins ...gpio.PinOut) (*Pins, error) {
	p := &Pins{pins: pins}
	if err := p.SetAll(false); err != nil {
		return nil, err
	}
	return p, nil
}

// SetAll drives every pin high or low.
func (p *Pins) SetAll(on bool) error {
	l := gpio.Low
	if on {
		l = gpio.High
	}
	for _, pin := range p.pins {
		if err := pin.Out(l); err != nil {
			return fmt.Errorf("set led on %s: %w", pin, err)
		}
	}
	p.on = on
	return nil
}

// On reports the last state requested by SetAll.
func (p *Pins) On() bool {
	return p.on
}
