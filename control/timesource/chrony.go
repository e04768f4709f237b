package timesource

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/facebookincubator/ntp/protocol/chrony"
)

// leapUnsynchronized is chrony's LEAP_Unsynchronised, from chrony/ntp.h.
const leapUnsynchronized = 3

// SyncStatus is the part of chronyd's tracking report that tells us whether the system clock
// can be trusted for firing an alarm.
type SyncStatus struct {
	RefID      string
	Stratum    uint16
	LeapStatus uint16
	Offset     time.Duration // last measured offset of the system clock
	Correction time.Duration // current correction being slewed in
}

// Synchronized reports whether chronyd believes the system clock is synchronized.
func (s SyncStatus) Synchronized() bool {
	return s.LeapStatus != leapUnsynchronized
}

// CheckSync asks the chronyd at addr (usually localhost:323) for tracking information.  This is
// advisory; the alarm clock has exactly one time source (the system clock), and this merely
// tells the operator if that source is worth believing.
func CheckSync(ctx context.Context, addr string) (SyncStatus, error) {
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return SyncStatus{}, fmt.Errorf("set deadline: %w", err)
	}

	c := chrony.Client{Sequence: 1, Connection: conn}
	res, err := c.Communicate(chrony.NewTrackingPacket())
	if err != nil {
		return SyncStatus{}, fmt.Errorf("get tracking info: communicate: %w", err)
	}
	tracking, ok := res.(*chrony.ReplyTracking)
	if !ok {
		return SyncStatus{}, fmt.Errorf("tracking reply was of unexpected type %T", res)
	}
	return statusFromTracking(tracking.Tracking), nil
}

func statusFromTracking(t chrony.Tracking) SyncStatus {
	return SyncStatus{
		RefID:      intRefID(t.RefID),
		Stratum:    t.Stratum,
		LeapStatus: t.LeapStatus,
		Offset:     time.Duration(t.LastOffset * 1e9),
		Correction: time.Duration(t.CurrentCorrection * 1e9),
	}
}

// refID renders a chrony reference ID.  Reference clocks use printable ASCII names packed into
// the address ("GPS", "PPS", "RTC"); everything else is shown as an IP address.
func refID(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		last := len(v4)
		for i, b := range v4 {
			if b == 0 && i > 0 {
				last = i
				break
			}
			if b < '0' || b > 'z' {
				last = 0
				break
			}
		}
		if last > 0 {
			return string(v4[0:last])
		}
	}
	return ip.String()
}

func intRefID(ip uint32) string {
	return refID(net.IPv4(byte((ip>>24)&0xff), byte((ip>>16)&0xff), byte((ip>>8)&0xff), byte(ip&0xff)))
}
