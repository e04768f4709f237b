// Package status keeps a summary of the running clock for the debug server's index page.
package status

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/jrockway/beaglebone-alarm-clock/control/logger"
	"github.com/jrockway/beaglebone-alarm-clock/control/timesource"
)

var (
	//go:embed index.html.tmpl
	indexHTML string
	funcMap   = template.FuncMap{
		"leap":       formatLeap,
		"correction": formatCorrection,
		"unixtime":   formatUnixTime,
	}
	index = template.Must(template.New("index").Funcs(funcMap).Parse(indexHTML))
)

// Status is what the index page shows.
type Status struct {
	Started time.Time
	Updated time.Time

	Now          timesource.ClockTime
	AlarmEnabled bool
	AlarmHour    int
	AlarmMinute  int

	Source   string
	Fallback bool

	Sync    *timesource.SyncStatus
	SyncErr string
}

// Alarm formats the alarm setting.
func (s Status) Alarm() string {
	state := "disarmed"
	if s.AlarmEnabled {
		state = "armed"
	}
	return fmt.Sprintf("%02d:%02d %s", s.AlarmHour, s.AlarmMinute, state)
}

// Board holds the latest Status.  It is safe for concurrent use; the control loop writes and the
// http server reads.
type Board struct {
	mu     sync.RWMutex
	status Status
	clock  func() time.Time
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	b := &Board{clock: time.Now}
	b.status.Started = b.clock()
	return b
}

// SetSource records which time source the clock is using.
func (b *Board) SetSource(name string, fallback bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Source = name
	b.status.Fallback = fallback
}

// SetSync records the result of asking chronyd about the system clock.
func (b *Board) SetSync(s timesource.SyncStatus, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.status.Sync = nil
		b.status.SyncErr = err.Error()
		return
	}
	b.status.Sync = &s
	b.status.SyncErr = ""
}

// Report records the time shown at the end of a tick and the alarm as it stands.
func (b *Board) Report(now timesource.ClockTime, enabled bool, hour, minute int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Updated = b.clock()
	b.status.Now = now
	b.status.AlarmEnabled = enabled
	b.status.AlarmHour = hour
	b.status.AlarmMinute = minute
}

// Snapshot returns a copy of the current status.
func (b *Board) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.status
	if s.Sync != nil {
		cp := *s.Sync
		s.Sync = &cp
	}
	return s
}

// ServeHTTP renders the index page.
func (b *Board) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s := b.Snapshot()
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := index.Execute(w, s); err != nil {
		logger.Errorf(req.Context(), "execute template: %v", err)
	}
}

func formatUnixTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.In(time.UTC).Format(time.UnixDate)
}

func formatLeap(x uint16) string {
	// From chrony/client.c and chrony/ntp.h
	switch x {
	case 0:
		return "Normal"
	case 1:
		return "Insert second"
	case 2:
		return "Delete second"
	case 3:
		return "Unsynchronized"
	default:
		return fmt.Sprintf("Invalid (%v)", x)
	}
}

func formatCorrection(d time.Duration) string {
	fast := "slow"
	if d < 0 {
		d = -d
		fast = "fast"
	}
	return fmt.Sprintf("%s %s of NTP time", d.String(), fast)
}
