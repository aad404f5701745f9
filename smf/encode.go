package smf

import "github.com/pkg/errors"

// encoder appends events to a track payload. With running set, a channel
// status byte equal to the previous one is omitted.
type encoder struct {
	buf     []byte
	running bool
	status  byte
}

func (e *encoder) writeEvent(ev Event) error {
	var err error
	e.buf, err = AppendVarLen(e.buf, ev.Delta)
	if err != nil {
		return errors.Wrap(err, "delta-time")
	}
	return e.writeMessage(ev.Message)
}

func (e *encoder) writeMessage(m Message) error {
	if err := validate(m); err != nil {
		return err
	}
	switch v := m.(type) {
	case ChannelMessage:
		st := v.Status()
		if !e.running || st != e.status {
			e.buf = append(e.buf, st)
		}
		e.status = st
		e.buf = append(e.buf, v.Data1)
		if v.Type.DataLen() == 2 {
			e.buf = append(e.buf, v.Data2)
		}
		return nil
	case SysEx:
		e.buf = append(e.buf, 0xF0)
		return e.writeData(v.Data)
	case EscapeSysEx:
		e.buf = append(e.buf, 0xF7)
		return e.writeData(v.Data)
	case metaMessage:
		e.buf = append(e.buf, 0xFF, byte(v.MetaType()))
		return e.writeData(v.payload())
	case nil:
		return errors.New("smf: nil message")
	}
	return errors.Errorf("smf: cannot encode %T", m)
}

// validate rejects values that do not fit their encoded field, using the
// same ranges the reader enforces.
func validate(m Message) error {
	out := func(field string, v int) error {
		return errors.Wrapf(ErrInvalidMessage, "%v %s %d", m, field, v)
	}
	switch v := m.(type) {
	case ChannelMessage:
		if v.Type < NoteOffType || v.Type > PitchBendType || v.Type&0x0F != 0 {
			return errors.Errorf("smf: invalid channel message type 0x%02X", uint8(v.Type))
		}
		switch {
		case v.Channel > 15:
			return out("channel", int(v.Channel))
		case v.Data1 > 0x7F:
			return out("data1", int(v.Data1))
		case v.Type.DataLen() == 2 && v.Data2 > 0x7F:
			return out("data2", int(v.Data2))
		}
	case SetTempo:
		if v.MicrosecondsPerQuarterNote > 0xFFFFFF {
			return out("tempo", int(v.MicrosecondsPerQuarterNote))
		}
	case ChannelPrefix:
		if v.Channel > 15 {
			return out("channel", int(v.Channel))
		}
	case PortPrefix:
		if v.Port > 127 {
			return out("port", int(v.Port))
		}
	case SMPTEOffset:
		if v.Rate > SMPTE30 {
			return out("rate", int(v.Rate))
		}
		if v.Hours > 23 {
			return out("hours", int(v.Hours))
		}
	case TimeSignature:
		if v.DenominatorPower > MaxDenominatorPower {
			return out("denominator power", int(v.DenominatorPower))
		}
	case KeySignature:
		if v.Key < -7 || v.Key > 7 {
			return out("key", int(v.Key))
		}
		if v.Scale > 1 {
			return out("scale", int(v.Scale))
		}
	}
	return nil
}

func (e *encoder) writeData(data []byte) error {
	if uint64(len(data)) > MaxVarLen {
		return errors.Wrapf(ErrVarLenOverflow, "payload of %d bytes", len(data))
	}
	var err error
	e.buf, err = AppendVarLen(e.buf, uint32(len(data)))
	if err != nil {
		return err
	}
	e.buf = append(e.buf, data...)
	return nil
}

// EncodeMessage returns the bytes of m as they appear after a delta-time,
// always with an explicit status byte.
func EncodeMessage(m Message) ([]byte, error) {
	var e encoder
	if err := e.writeMessage(m); err != nil {
		return nil, err
	}
	return e.buf, nil
}
