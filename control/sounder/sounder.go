// Package sounder plays the wake-up sequence: a spoken phrase followed by a row of beeps.
package sounder

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts configures the alarm sequence.
type Opts struct {
	Frequency physic.Frequency // Pitch of each beep.
	Beep      time.Duration    // How long each beep sounds.
	Pause     time.Duration    // Silence after each beep.
	Beeps     int

	// Phrase is spoken first by running SpeakCommand with the phrase appended as the last
	// argument.  An empty SpeakCommand skips the phrase.
	Phrase       string
	SpeakCommand []string
}

// DefaultOpts is ten 440Hz beeps, a second apart.
var DefaultOpts = Opts{
	Frequency: 440 * physic.Hertz,
	Beep:      200 * time.Millisecond,
	Pause:     time.Second,
	Beeps:     10,
	Phrase:    "Aufstehen!",
}

// Sounder drives a piezo buzzer with PWM.
type Sounder struct {
	buzzer gpio.PinOut
	opts   Opts

	// Sleep and Run are replaced in tests.
	Sleep func(time.Duration)
	Run   func(argv []string) error
}

// New returns a Sounder on the buzzer pin, which is driven low until the alarm plays.
func New(buzzer gpio.PinOut, o Opts) (*Sounder, error) {
	if buzzer == nil {
		return nil, errors.New("no buzzer pin")
	}
	if err := buzzer.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("silence buzzer on %s: %w", buzzer, err)
	}
	return &Sounder{buzzer: buzzer, opts: o, Sleep: time.Sleep, Run: runCommand}, nil
}

// Speaks reports whether Play starts with the spoken phrase.
func (s *Sounder) Speaks() bool {
	return len(s.opts.SpeakCommand) > 0 && s.opts.Phrase != ""
}

// Play blocks until the whole sequence has sounded.  It cannot be interrupted.  A failure to
// speak does not stop the beeps; it is reported after they finish.
func (s *Sounder) Play() error {
	var speakErr error
	if s.Speaks() {
		argv := append(append([]string{}, s.opts.SpeakCommand...), s.opts.Phrase)
		if err := s.Run(argv); err != nil {
			speakErr = fmt.Errorf("speak %q: %w", s.opts.Phrase, err)
		}
	}
	for i := 0; i < s.opts.Beeps; i++ {
		if err := s.beep(); err != nil {
			return fmt.Errorf("beep %d: %w", i+1, err)
		}
		s.Sleep(s.opts.Pause)
	}
	return speakErr
}

func (s *Sounder) beep() error {
	if err := s.buzzer.PWM(gpio.DutyHalf, s.opts.Frequency); err != nil {
		return fmt.Errorf("start tone: %w", err)
	}
	s.Sleep(s.opts.Beep)
	if err := s.buzzer.Out(gpio.Low); err != nil {
		return fmt.Errorf("stop tone: %w", err)
	}
	return nil
}

func runCommand(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w (output: %s)", err, out)
	}
	return nil
}
