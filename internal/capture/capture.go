// Package capture wraps a libpcap session behind an abstract "open live
// device" / "open offline file" contract: configure before a one-shot
// activation, then pull packets with a borrowed view per call.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket/pcap"
)

// Datalink tags recognized by the parser selector; anything else is a fatal
// configuration error.
type Datalink int

const (
	DatalinkNull     Datalink = 0
	DatalinkEthernet Datalink = 1
	DatalinkRadiotap Datalink = 127
)

// ErrUnsupportedDatalink is returned when a session's link type is not one
// the parser tree knows how to select for.
var ErrUnsupportedDatalink = errors.New("capture: unsupported datalink type")

// ErrAlreadyActive is returned by the configuration setters once Activate
// has been called.
var ErrAlreadyActive = errors.New("capture: session already active")

// Packet is the borrowed view handed to the callback in Next: a capture
// timestamp, the captured length, the original wire length, and the raw
// bytes (valid only for the duration of the callback).
type Packet struct {
	Timestamp time.Time
	CapLen    int
	WireLen   int
	Data      []byte
}

// Source is a single capture session, live or offline.
type Source struct {
	inactive *pcap.InactiveHandle
	handle   *pcap.Handle
	offline  bool
}

// OpenLive configures (but does not yet activate) a live capture on device.
// Device auto-selection (e.g. "first device") is the caller's responsibility;
// this constructor requires a concrete device name.
func OpenLive(device string) (*Source, error) {
	ih, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("capture: open live %q: %w", device, err)
	}
	return &Source{inactive: ih}, nil
}

// OpenOffline opens a saved capture file for replay. Offline sessions are
// active immediately; SetSnapLen/SetPromisc/SetTimeout/SetMonitor do not
// apply and return ErrAlreadyActive if called.
func OpenOffline(path string) (*Source, error) {
	h, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open offline %q: %w", path, err)
	}
	return &Source{handle: h, offline: true}, nil
}

// SetSnapLen sets the capture buffer size in bytes. Must be called before Activate.
func (s *Source) SetSnapLen(n int) error {
	if s.inactive == nil {
		return ErrAlreadyActive
	}
	return s.inactive.SetSnapLen(n)
}

// SetPromisc sets the promiscuous-mode flag. Must be called before Activate.
func (s *Source) SetPromisc(on bool) error {
	if s.inactive == nil {
		return ErrAlreadyActive
	}
	return s.inactive.SetPromisc(on)
}

// SetTimeout sets the read timeout used by Next. Must be called before Activate.
func (s *Source) SetTimeout(d time.Duration) error {
	if s.inactive == nil {
		return ErrAlreadyActive
	}
	return s.inactive.SetTimeout(d)
}

// SetMonitor sets the rfmon (802.11 monitor) flag. Must be called before Activate.
func (s *Source) SetMonitor(on bool) error {
	if s.inactive == nil {
		return ErrAlreadyActive
	}
	return s.inactive.SetRFMon(on)
}

// Activate performs the one-shot transition from configured to active.
// Calling it twice, or on an offline session, returns ErrAlreadyActive.
func (s *Source) Activate() error {
	if s.inactive == nil {
		return ErrAlreadyActive
	}
	h, err := s.inactive.Activate()
	if err != nil {
		return fmt.Errorf("capture: activate: %w", err)
	}
	s.handle = h
	s.inactive = nil
	return nil
}

// Datalink returns the session's link-layer type, mapped onto the small set
// the parser tree recognizes.
func (s *Source) Datalink() (Datalink, error) {
	if s.handle == nil {
		return 0, errors.New("capture: session not active")
	}
	switch s.handle.LinkType() {
	case 0: // DLT_NULL
		return DatalinkNull, nil
	case 1: // DLT_EN10MB
		return DatalinkEthernet, nil
	case 127: // DLT_IEEE802_11_RADIO
		return DatalinkRadiotap, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedDatalink, s.handle.LinkType())
	}
}

// ListDatalinks returns all link types the underlying device supports.
func (s *Source) ListDatalinks() ([]int, error) {
	if s.handle == nil {
		return nil, errors.New("capture: session not active")
	}
	dls, err := s.handle.ListDataLinks()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(dls))
	for i, dl := range dls {
		out[i] = int(dl)
	}
	return out, nil
}

// Next blocks up to the configured read timeout for the next packet and
// invokes f with a borrowed view of it. A read timeout is a silent no-op
// (f is not called, nil is returned). Exhaustion of an offline file is
// reported as io.EOF. Any other underlying error is fatal and returned
// as-is.
func (s *Source) Next(f func(Packet)) error {
	if s.handle == nil {
		return errors.New("capture: session not active")
	}
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	switch {
	case err == nil:
		f(Packet{
			Timestamp: ci.Timestamp,
			CapLen:    ci.CaptureLength,
			WireLen:   ci.Length,
			Data:      data,
		})
		return nil
	case err == pcap.NextErrorTimeoutExpired:
		return nil
	case s.offline && (err == io.EOF || err == pcap.NextErrorNoMorePackets):
		return io.EOF
	default:
		return fmt.Errorf("capture: read: %w", err)
	}
}

// Close releases the underlying pcap handle.
func (s *Source) Close() {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	if s.inactive != nil {
		s.inactive.CleanupInactiveHandle()
		s.inactive = nil
	}
}
