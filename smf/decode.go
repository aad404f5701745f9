package smf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pkg/errors"

	"go-smf/debug"
)

// errTruncated ends the current track (and file) after a NotEnoughBytes
// anomaly was ignored.
var errTruncated = errors.New("smf: truncated input")

// decoder turns byte runs into messages. Running status and the open-sysex
// flag live here, so one decoder serves one stream at a time.
type decoder struct {
	r         *reader
	s         *ReadSettings
	status    byte // last channel status byte, 0 when none
	sysexOpen bool // a 0xF0 packet without its closing 0xF7 was read
}

func (d *decoder) resetTrack() {
	d.status = 0
	d.sysexOpen = false
}

// anomaly applies the configured policy for kind. A Fail action comes back
// as an *Error; every other action is logged and returned to the caller.
func (d *decoder) anomaly(kind ErrorKind, offset int64, format string, args ...any) (Action, error) {
	detail := fmt.Sprintf(format, args...)
	act := Decide(kind, d.s.policyFor(kind))
	if act == Fail {
		return act, &Error{Kind: kind, Offset: offset, Detail: detail}
	}
	debug.Log("smf", "recovered %s at offset %d: %s", kind, offset, detail)
	return act, nil
}

// check maps a short read to the NotEnoughBytes policy.
func (d *decoder) check(err error, what string) error {
	if err != errShort {
		return err
	}
	if _, err := d.anomaly(KindNotEnoughBytes, d.r.pos, "reading %s", what); err != nil {
		return err
	}
	return errTruncated
}

// readEvent reads a delta-time and the message after it.
func (d *decoder) readEvent() (Event, error) {
	delta, err := d.r.readVarLen()
	if err != nil {
		return Event{}, d.check(err, "delta-time")
	}
	msg, err := d.readMessage()
	if err != nil {
		return Event{}, err
	}
	return Event{Delta: delta, Message: msg}, nil
}

func (d *decoder) readMessage() (Message, error) {
	offset := d.r.pos
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, d.check(err, "status byte")
	}

	var first byte
	running := false
	if b&0x80 == 0 {
		if d.status == 0 {
			_, err := d.anomaly(KindUnexpectedRunningStatus, offset, "data byte 0x%02X without a status byte", b)
			return nil, err
		}
		first, running = b, true
		b = d.status
	}

	switch {
	case b >= 0x80 && b <= 0xEF:
		d.status = b
		return d.readChannel(b, first, running)
	case b == 0xFF:
		return d.readMeta()
	case b == 0xF0:
		return d.readSysEx()
	case b == 0xF7:
		return d.readEscape()
	}
	_, err = d.anomaly(KindUnknownChannelEvent, offset, "status byte 0x%02X", b)
	return nil, err
}

func (d *decoder) readChannel(status, first byte, running bool) (Message, error) {
	t := ChannelType(status & 0xF0)
	var data [2]byte
	for i := 0; i < t.DataLen(); i++ {
		if i == 0 && running {
			data[0] = first
			continue
		}
		offset := d.r.pos
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, d.check(err, t.String())
		}
		if b > 0x7F {
			act, err := d.anomaly(KindInvalidChannelEventParameterValue, offset, "%s parameter 0x%02X", t, b)
			if err != nil {
				return nil, err
			}
			if act == Clamp {
				b = 0x7F
			} else {
				b &= 0x7F
			}
		}
		data[i] = b
	}

	m := ChannelMessage{Type: t, Channel: status & 0x0F, Data1: data[0], Data2: data[1]}
	if t == NoteOnType && m.Data2 == 0 && d.s.SilentNoteOn == AsNoteOff {
		m.Type = NoteOffType
	}
	return m, nil
}

func (d *decoder) readMeta() (Message, error) {
	typ, err := d.r.ReadByte()
	if err != nil {
		return nil, d.check(err, "meta type")
	}
	n, err := d.r.readVarLen()
	if err != nil {
		return nil, d.check(err, "meta length")
	}
	offset := d.r.pos
	data, err := d.r.read(n)
	if err != nil {
		return nil, d.check(err, MetaType(typ).String())
	}
	return d.parseMeta(MetaType(typ), data, offset)
}

// metaLengths holds the payload length of fixed-size meta sub-types.
var metaLengths = map[MetaType]int{
	MetaSequenceNumber: 2,
	MetaChannelPrefix:  1,
	MetaPortPrefix:     1,
	MetaEndOfTrack:     0,
	MetaSetTempo:       3,
	MetaSMPTEOffset:    5,
	MetaTimeSignature:  4,
	MetaKeySignature:   2,
}

func (d *decoder) parseMeta(t MetaType, data []byte, offset int64) (Message, error) {
	if n, fixed := metaLengths[t]; fixed && len(data) != n {
		debug.Log("smf", "%s with %d payload bytes at offset %d kept as unknown", t, len(data), offset)
		return UnknownMeta{Type: t, Data: data}, nil
	}
	if t.IsText() {
		return Text{Type: t, Text: string(data)}, nil
	}

	p := params{d: d, offset: offset}
	var m Message
	switch t {
	case MetaSequenceNumber:
		m = SequenceNumber{Number: uint16At(data)}
	case MetaChannelPrefix:
		m = ChannelPrefix{Channel: uint8(p.check("channel", int(data[0]), 0, 15))}
	case MetaPortPrefix:
		m = PortPrefix{Port: uint8(p.check("port", int(data[0]), 0, 127))}
	case MetaEndOfTrack:
		m = EndOfTrack{}
	case MetaSetTempo:
		m = SetTempo{MicrosecondsPerQuarterNote: uint32(p.check("tempo", int(uint24At(data)), 1, 0xFFFFFF))}
	case MetaSMPTEOffset:
		rate := SMPTERate(data[0] >> 5 & 0x03)
		m = SMPTEOffset{
			Rate:      rate,
			Hours:     uint8(p.check("hours", int(data[0]&0x1F), 0, 23)),
			Minutes:   uint8(p.check("minutes", int(data[1]), 0, 59)),
			Seconds:   uint8(p.check("seconds", int(data[2]), 0, 59)),
			Frames:    uint8(p.check("frames", int(data[3]), 0, int(rate.MaxFrames()))),
			SubFrames: uint8(p.check("sub-frames", int(data[4]), 0, 99)),
		}
	case MetaTimeSignature:
		m = TimeSignature{
			Numerator:                   uint8(p.check("numerator", int(data[0]), 1, 255)),
			DenominatorPower:            uint8(p.check("denominator power", int(data[1]), 0, MaxDenominatorPower)),
			ClocksPerClick:              data[2],
			ThirtySecondNotesPerQuarter: data[3],
		}
	case MetaKeySignature:
		m = KeySignature{
			Key:   int8(p.check("key", int(int8(data[0])), -7, 7)),
			Scale: uint8(p.check("scale", int(data[1]), 0, 1)),
		}
	case MetaSequencerSpecific:
		m = SequencerSpecific{Data: data}
	default:
		m = UnknownMeta{Type: t, Data: data}
	}
	if p.err != nil {
		return nil, p.err
	}
	return m, nil
}

// params validates meta parameters against InvalidMetaEventParameterValue,
// keeping the first failure.
type params struct {
	d      *decoder
	offset int64
	err    error
}

func (p *params) check(name string, v, min, max int) int {
	if p.err != nil || (v >= min && v <= max) {
		return v
	}
	if _, err := p.d.anomaly(KindInvalidMetaEventParameterValue, p.offset, "%s %d outside %d..%d", name, v, min, max); err != nil {
		p.err = err
		return v
	}
	if v < min {
		return min
	}
	return max
}

func (d *decoder) readSysEx() (Message, error) {
	data, err := d.readSysExData("sysex")
	if err != nil {
		return nil, err
	}
	m := SysEx{Data: data}
	d.sysexOpen = !m.Complete()
	return m, nil
}

func (d *decoder) readEscape() (Message, error) {
	data, err := d.readSysExData("escape sysex")
	if err != nil {
		return nil, err
	}
	m := EscapeSysEx{Data: data, Continuation: d.sysexOpen}
	if d.sysexOpen && len(data) > 0 && data[len(data)-1] == 0xF7 {
		d.sysexOpen = false
	}
	return m, nil
}

func (d *decoder) readSysExData(what string) ([]byte, error) {
	n, err := d.r.readVarLen()
	if err != nil {
		return nil, d.check(err, what+" length")
	}
	data, err := d.r.read(n)
	if err != nil {
		return nil, d.check(err, what)
	}
	return data, nil
}

// DecodeMessage decodes a single message (status byte first, no delta-time)
// from b. A nil settings value means DefaultReadSettings.
func DecodeMessage(b []byte, s *ReadSettings) (Message, error) {
	settings := DefaultReadSettings()
	if s != nil {
		settings = *s
	}
	d := decoder{r: newReader(context.Background(), bytes.NewReader(b)), s: &settings}
	m, err := d.readMessage()
	if err == errTruncated {
		return nil, errors.Wrap(err, "decode message")
	}
	return m, err
}
