package smf

import (
	"bytes"
	"fmt"
)

// Kind identifies the variant of a Message.
type Kind uint8

const (
	KindChannelVoice Kind = iota
	KindChannelMode
	KindMeta
	KindSysEx
	KindEscapeSysEx
)

func (k Kind) String() string {
	switch k {
	case KindChannelVoice:
		return "ChannelVoice"
	case KindChannelMode:
		return "ChannelMode"
	case KindMeta:
		return "Meta"
	case KindSysEx:
		return "SysEx"
	case KindEscapeSysEx:
		return "EscapeSysEx"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message is the payload of an event. The set of implementations is closed:
// ChannelMessage, the meta types in meta.go, SysEx and EscapeSysEx.
type Message interface {
	Kind() Kind
	String() string
	message()
}

// Event is a message preceded by the ticks elapsed since the previous event
// of the same track chunk.
type Event struct {
	Delta   uint32
	Message Message
}

func (e Event) String() string {
	return fmt.Sprintf("+%d %s", e.Delta, e.Message)
}

// ChannelType is the high nibble of a channel status byte.
type ChannelType uint8

const (
	NoteOffType         ChannelType = 0x80
	NoteOnType          ChannelType = 0x90
	PolyPressureType    ChannelType = 0xA0
	ControlChangeType   ChannelType = 0xB0
	ProgramChangeType   ChannelType = 0xC0
	ChannelPressureType ChannelType = 0xD0
	PitchBendType       ChannelType = 0xE0
)

var channelTypeNames = map[ChannelType]string{
	NoteOffType:         "NoteOff",
	NoteOnType:          "NoteOn",
	PolyPressureType:    "PolyPressure",
	ControlChangeType:   "ControlChange",
	ProgramChangeType:   "ProgramChange",
	ChannelPressureType: "ChannelPressure",
	PitchBendType:       "PitchBend",
}

func (t ChannelType) String() string {
	if s, ok := channelTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ChannelType(0x%02X)", uint8(t))
}

// DataLen returns how many data bytes follow the status byte.
func (t ChannelType) DataLen() int {
	switch t {
	case ProgramChangeType, ChannelPressureType:
		return 1
	}
	return 2
}

// ChannelMessage is a channel voice or channel mode message.
// Data2 is unused for one-byte types.
type ChannelMessage struct {
	Type    ChannelType
	Channel uint8 // 0-15
	Data1   uint8 // 0-127
	Data2   uint8 // 0-127
}

func (ChannelMessage) message() {}

// Kind reports KindChannelMode for control changes 120-127.
func (m ChannelMessage) Kind() Kind {
	if m.Type == ControlChangeType && m.Data1 >= 120 {
		return KindChannelMode
	}
	return KindChannelVoice
}

// Status returns the status byte: type in the high nibble, channel in the low.
func (m ChannelMessage) Status() byte {
	return byte(m.Type) | m.Channel&0x0F
}

// Bend returns the 14-bit pitch bend value (8192 is centre).
func (m ChannelMessage) Bend() uint16 {
	return uint16(m.Data1) | uint16(m.Data2)<<7
}

func (m ChannelMessage) String() string {
	switch m.Type {
	case ProgramChangeType, ChannelPressureType:
		return fmt.Sprintf("%s ch=%d %d", m.Type, m.Channel, m.Data1)
	case PitchBendType:
		return fmt.Sprintf("%s ch=%d %d", m.Type, m.Channel, m.Bend())
	}
	return fmt.Sprintf("%s ch=%d %d %d", m.Type, m.Channel, m.Data1, m.Data2)
}

func channelMessage(t ChannelType, ch, d1, d2 uint8) ChannelMessage {
	return ChannelMessage{Type: t, Channel: ch & 0x0F, Data1: d1 & 0x7F, Data2: d2 & 0x7F}
}

func NoteOn(ch, key, velocity uint8) ChannelMessage {
	return channelMessage(NoteOnType, ch, key, velocity)
}

func NoteOff(ch, key, velocity uint8) ChannelMessage {
	return channelMessage(NoteOffType, ch, key, velocity)
}

func PolyPressure(ch, key, pressure uint8) ChannelMessage {
	return channelMessage(PolyPressureType, ch, key, pressure)
}

func ControlChange(ch, controller, value uint8) ChannelMessage {
	return channelMessage(ControlChangeType, ch, controller, value)
}

func ProgramChange(ch, program uint8) ChannelMessage {
	return channelMessage(ProgramChangeType, ch, program, 0)
}

func ChannelPressure(ch, pressure uint8) ChannelMessage {
	return channelMessage(ChannelPressureType, ch, pressure, 0)
}

// PitchBend takes a 14-bit value; 8192 is centre.
func PitchBend(ch uint8, value uint16) ChannelMessage {
	return channelMessage(PitchBendType, ch, uint8(value&0x7F), uint8(value>>7&0x7F))
}

// SysEx is a system exclusive packet introduced by 0xF0. Data holds the
// bytes after the length, including the trailing 0xF7 when present.
type SysEx struct {
	Data []byte
}

func (SysEx) message()   {}
func (SysEx) Kind() Kind { return KindSysEx }
func (m SysEx) String() string {
	return fmt.Sprintf("SysEx % X", m.Data)
}

// Complete reports whether the packet carries its own terminating 0xF7.
func (m SysEx) Complete() bool {
	return len(m.Data) > 0 && m.Data[len(m.Data)-1] == 0xF7
}

// EscapeSysEx is a packet introduced by 0xF7: either a continuation of an
// unterminated SysEx or an escaped run of arbitrary bytes.
type EscapeSysEx struct {
	Data         []byte
	Continuation bool // a SysEx packet was still open when this was read
}

func (EscapeSysEx) message()   {}
func (EscapeSysEx) Kind() Kind { return KindEscapeSysEx }
func (m EscapeSysEx) String() string {
	if m.Continuation {
		return fmt.Sprintf("SysExContinuation % X", m.Data)
	}
	return fmt.Sprintf("Escape % X", m.Data)
}

// CloneMessage returns a copy that shares no byte slices with m.
func CloneMessage(m Message) Message {
	switch v := m.(type) {
	case SysEx:
		return SysEx{Data: cloneBytes(v.Data)}
	case EscapeSysEx:
		return EscapeSysEx{Data: cloneBytes(v.Data), Continuation: v.Continuation}
	case SequencerSpecific:
		return SequencerSpecific{Data: cloneBytes(v.Data)}
	case UnknownMeta:
		return UnknownMeta{Type: v.Type, Data: cloneBytes(v.Data)}
	}
	// every other variant is a plain value
	return m
}

// Equal compares two messages by value.
func Equal(a, b Message) bool {
	switch x := a.(type) {
	case SysEx:
		y, ok := b.(SysEx)
		return ok && bytes.Equal(x.Data, y.Data)
	case EscapeSysEx:
		y, ok := b.(EscapeSysEx)
		return ok && x.Continuation == y.Continuation && bytes.Equal(x.Data, y.Data)
	case SequencerSpecific:
		y, ok := b.(SequencerSpecific)
		return ok && bytes.Equal(x.Data, y.Data)
	case UnknownMeta:
		y, ok := b.(UnknownMeta)
		return ok && x.Type == y.Type && bytes.Equal(x.Data, y.Data)
	}
	return a == b
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
