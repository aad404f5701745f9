// Package midi connects decoded SMF data to live MIDI output through gomidi.
// A driver must be registered by the program (see cmd/smftool).
package midi

import (
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-smf/debug"
	"go-smf/smf"
)

// ErrPortsTimeout is returned when the driver does not answer a port scan.
var ErrPortsTimeout = errors.New("midi: port scan timed out")

// OutPorts lists output port names. Some drivers (CoreMIDI) can hang, so the
// scan is abandoned after timeout.
func OutPorts(timeout time.Duration) ([]string, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		names := make([]string, len(outs))
		for i, p := range outs {
			names[i] = p.String()
		}
		return names, nil
	case <-time.After(timeout):
		return nil, ErrPortsTimeout
	}
}

// Sender sends messages to one output port.
type Sender struct {
	out  drivers.Out
	send func(gomidi.Message) error
}

// OpenOut opens the output port with the given name.
func OpenOut(name string) (*Sender, error) {
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, errors.Wrapf(err, "find output %q", name)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "open output %q", name)
	}
	debug.Log("midi", "opened output %s", out.String())
	return &Sender{out: out, send: send}, nil
}

// Send sends m if it has a live form and reports whether it did.
func (s *Sender) Send(m smf.Message) (bool, error) {
	msg, ok := Message(m)
	if !ok {
		return false, nil
	}
	return true, s.send(msg)
}

// SendTrack sends every message of t that has a live form, in order and
// without timing. It returns the number of messages sent.
func (s *Sender) SendTrack(t *smf.TrackChunk) (int, error) {
	n := 0
	for i, ev := range t.Events {
		ok, err := s.Send(ev.Message)
		if err != nil {
			return n, errors.Wrapf(err, "event %d", i)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// SendSysEx sends every complete SysEx packet of f.
func (s *Sender) SendSysEx(f *smf.File) (int, error) {
	return SendSysEx(s.send, f)
}

func (s *Sender) Close() error {
	return s.out.Close()
}

// SendSysEx passes every complete SysEx packet of f to send, track by track,
// without timing. It returns the number of packets sent.
func SendSysEx(send func(gomidi.Message) error, f *smf.File) (int, error) {
	n := 0
	for i, t := range f.Tracks() {
		for _, ev := range t.Events {
			sx, ok := ev.Message.(smf.SysEx)
			if !ok {
				continue
			}
			msg, ok := Message(sx)
			if !ok {
				debug.Log("midi", "track %d: skipped unterminated %s", i, sx)
				continue
			}
			if err := send(msg); err != nil {
				return n, errors.Wrapf(err, "track %d", i)
			}
			n++
		}
	}
	return n, nil
}
