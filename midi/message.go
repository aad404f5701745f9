package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-smf/smf"
)

// Message converts an smf message to a wire message for an output port.
// Only channel messages and complete SysEx packets can be sent live; meta
// events and escaped packets report false.
func Message(m smf.Message) (gomidi.Message, bool) {
	switch v := m.(type) {
	case smf.ChannelMessage:
		return channelMessage(v), true
	case smf.SysEx:
		if !v.Complete() {
			return nil, false
		}
		return gomidi.SysEx(v.Data[:len(v.Data)-1]), true
	}
	return nil, false
}

func channelMessage(m smf.ChannelMessage) gomidi.Message {
	ch := m.Channel & 0x0F
	switch m.Type {
	case smf.NoteOnType:
		return gomidi.NoteOn(ch, m.Data1, m.Data2)
	case smf.NoteOffType:
		return gomidi.NoteOffVelocity(ch, m.Data1, m.Data2)
	case smf.PolyPressureType:
		return gomidi.PolyAfterTouch(ch, m.Data1, m.Data2)
	case smf.ControlChangeType:
		return gomidi.ControlChange(ch, m.Data1, m.Data2)
	case smf.ProgramChangeType:
		return gomidi.ProgramChange(ch, m.Data1)
	case smf.ChannelPressureType:
		return gomidi.AfterTouch(ch, m.Data1)
	case smf.PitchBendType:
		// gomidi takes the bend relative to centre
		return gomidi.Pitchbend(ch, int16(m.Bend())-8192)
	}
	return nil
}

// Messages returns the sendable messages of a track in order.
func Messages(t *smf.TrackChunk) []gomidi.Message {
	var out []gomidi.Message
	for _, ev := range t.Events {
		if msg, ok := Message(ev.Message); ok {
			out = append(out, msg)
		}
	}
	return out
}
