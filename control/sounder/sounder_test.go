package sounder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// recordingPin wraps gpiotest.Pin and remembers every tone that was started.
type recordingPin struct {
	gpiotest.Pin
	tones []physic.Frequency
}

func (p *recordingPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.tones = append(p.tones, f)
	p.Pin.L = gpio.High
	return nil
}

func TestPlay(t *testing.T) {
	pin := &recordingPin{Pin: gpiotest.Pin{N: "GPIO18", L: gpio.High}}
	opts := DefaultOpts
	opts.SpeakCommand = []string{"espeak", "-v", "de"}
	s, err := New(pin, opts)
	require.NoError(t, err)
	require.Equal(t, gpio.Low, pin.Pin.L, "buzzer should be silent after setup")
	require.True(t, s.Speaks())

	var slept time.Duration
	var spoken [][]string
	s.Sleep = func(d time.Duration) { slept += d }
	s.Run = func(argv []string) error {
		spoken = append(spoken, argv)
		return nil
	}

	require.NoError(t, s.Play())
	require.Equal(t, [][]string{{"espeak", "-v", "de", "Aufstehen!"}}, spoken)
	require.Len(t, pin.tones, 10)
	require.Equal(t, 440*physic.Hertz, pin.tones[0])
	require.Equal(t, 10*(200*time.Millisecond+time.Second), slept)
	require.Equal(t, gpio.Low, pin.Pin.L, "buzzer should be silent after playing")
}

func TestPlayWithoutSpeech(t *testing.T) {
	pin := &recordingPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	s, err := New(pin, DefaultOpts)
	require.NoError(t, err)
	require.False(t, s.Speaks())

	s.Sleep = func(time.Duration) {}
	s.Run = func([]string) error {
		t.Fatal("speech command should not run")
		return nil
	}
	require.NoError(t, s.Play())
	require.Len(t, pin.tones, 10)
}

func TestSpeechFailureStillBeeps(t *testing.T) {
	pin := &recordingPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	opts := DefaultOpts
	opts.SpeakCommand = []string{"espeak"}
	s, err := New(pin, opts)
	require.NoError(t, err)

	boom := errors.New("espeak: not found")
	s.Sleep = func(time.Duration) {}
	s.Run = func([]string) error { return boom }

	err = s.Play()
	require.ErrorIs(t, err, boom)
	require.Len(t, pin.tones, 10)
}

func TestNewRequiresPin(t *testing.T) {
	_, err := New(nil, DefaultOpts)
	require.Error(t, err)
}
