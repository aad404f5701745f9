package smf

import "fmt"

// MetaType is the sub-type byte following 0xFF.
type MetaType uint8

const (
	MetaSequenceNumber    MetaType = 0x00
	MetaText              MetaType = 0x01
	MetaCopyright         MetaType = 0x02
	MetaTrackName         MetaType = 0x03
	MetaInstrumentName    MetaType = 0x04
	MetaLyric             MetaType = 0x05
	MetaMarker            MetaType = 0x06
	MetaCuePoint          MetaType = 0x07
	MetaProgramName       MetaType = 0x08
	MetaDeviceName        MetaType = 0x09
	MetaChannelPrefix     MetaType = 0x20
	MetaPortPrefix        MetaType = 0x21
	MetaEndOfTrack        MetaType = 0x2F
	MetaSetTempo          MetaType = 0x51
	MetaSMPTEOffset       MetaType = 0x54
	MetaTimeSignature     MetaType = 0x58
	MetaKeySignature      MetaType = 0x59
	MetaSequencerSpecific MetaType = 0x7F
)

var metaNames = map[MetaType]string{
	MetaSequenceNumber:    "SequenceNumber",
	MetaText:              "Text",
	MetaCopyright:         "Copyright",
	MetaTrackName:         "TrackName",
	MetaInstrumentName:    "InstrumentName",
	MetaLyric:             "Lyric",
	MetaMarker:            "Marker",
	MetaCuePoint:          "CuePoint",
	MetaProgramName:       "ProgramName",
	MetaDeviceName:        "DeviceName",
	MetaChannelPrefix:     "ChannelPrefix",
	MetaPortPrefix:        "PortPrefix",
	MetaEndOfTrack:        "EndOfTrack",
	MetaSetTempo:          "SetTempo",
	MetaSMPTEOffset:       "SMPTEOffset",
	MetaTimeSignature:     "TimeSignature",
	MetaKeySignature:      "KeySignature",
	MetaSequencerSpecific: "SequencerSpecific",
}

func (t MetaType) String() string {
	if s, ok := metaNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Meta0x%02X", uint8(t))
}

// IsText reports whether t is one of the text sub-types 0x01-0x09.
func (t MetaType) IsText() bool {
	return t >= MetaText && t <= MetaDeviceName
}

// metaMessage is implemented by every meta variant.
type metaMessage interface {
	Message
	MetaType() MetaType
	payload() []byte
}

// MetaTypeOf returns the sub-type of a meta message.
func MetaTypeOf(m Message) (MetaType, bool) {
	mm, ok := m.(metaMessage)
	if !ok {
		return 0, false
	}
	return mm.MetaType(), true
}

type meta struct{}

func (meta) message()   {}
func (meta) Kind() Kind { return KindMeta }

type SequenceNumber struct {
	meta
	Number uint16
}

func (SequenceNumber) MetaType() MetaType { return MetaSequenceNumber }
func (m SequenceNumber) payload() []byte  { return appendUint16(nil, m.Number) }
func (m SequenceNumber) String() string   { return fmt.Sprintf("SequenceNumber %d", m.Number) }

// Text covers the text sub-types 0x01-0x09. Text holds the raw bytes.
type Text struct {
	meta
	Type MetaType
	Text string
}

func NewText(t MetaType, s string) Text {
	return Text{Type: t, Text: s}
}

func (m Text) MetaType() MetaType { return m.Type }
func (m Text) payload() []byte    { return []byte(m.Text) }
func (m Text) String() string     { return fmt.Sprintf("%s %q", m.Type, m.Text) }

type ChannelPrefix struct {
	meta
	Channel uint8
}

func (ChannelPrefix) MetaType() MetaType { return MetaChannelPrefix }
func (m ChannelPrefix) payload() []byte  { return []byte{m.Channel} }
func (m ChannelPrefix) String() string   { return fmt.Sprintf("ChannelPrefix %d", m.Channel) }

type PortPrefix struct {
	meta
	Port uint8
}

func (PortPrefix) MetaType() MetaType { return MetaPortPrefix }
func (m PortPrefix) payload() []byte  { return []byte{m.Port} }
func (m PortPrefix) String() string   { return fmt.Sprintf("PortPrefix %d", m.Port) }

type EndOfTrack struct {
	meta
}

func (EndOfTrack) MetaType() MetaType { return MetaEndOfTrack }
func (EndOfTrack) payload() []byte    { return nil }
func (EndOfTrack) String() string     { return "EndOfTrack" }

// DefaultTempo is 120 beats per minute.
const DefaultTempo = 500000

type SetTempo struct {
	meta
	MicrosecondsPerQuarterNote uint32 // 24-bit
}

func NewSetTempo(us uint32) SetTempo {
	return SetTempo{MicrosecondsPerQuarterNote: us}
}

func (SetTempo) MetaType() MetaType { return MetaSetTempo }
func (m SetTempo) payload() []byte  { return appendUint24(nil, m.MicrosecondsPerQuarterNote) }
func (m SetTempo) String() string {
	return fmt.Sprintf("SetTempo %d (%.2f bpm)", m.MicrosecondsPerQuarterNote, m.BPM())
}

// BPM returns quarter notes per minute.
func (m SetTempo) BPM() float64 {
	if m.MicrosecondsPerQuarterNote == 0 {
		return 0
	}
	return 60000000 / float64(m.MicrosecondsPerQuarterNote)
}

// SMPTERate is the frame rate code stored in the top bits of an SMPTE offset's hour byte.
type SMPTERate uint8

const (
	SMPTE24     SMPTERate = 0
	SMPTE25     SMPTERate = 1
	SMPTE30Drop SMPTERate = 2
	SMPTE30     SMPTERate = 3
)

// MaxFrames returns the largest valid frame number for the rate.
func (r SMPTERate) MaxFrames() uint8 {
	switch r {
	case SMPTE24:
		return 23
	case SMPTE25:
		return 24
	case SMPTE30Drop:
		return 28
	}
	return 29
}

type SMPTEOffset struct {
	meta
	Rate      SMPTERate
	Hours     uint8 // 0-23
	Minutes   uint8 // 0-59
	Seconds   uint8 // 0-59
	Frames    uint8 // 0-Rate.MaxFrames()
	SubFrames uint8 // 0-99
}

func (SMPTEOffset) MetaType() MetaType { return MetaSMPTEOffset }
func (m SMPTEOffset) payload() []byte {
	return []byte{byte(m.Rate)<<5 | m.Hours&0x1F, m.Minutes, m.Seconds, m.Frames, m.SubFrames}
}
func (m SMPTEOffset) String() string {
	return fmt.Sprintf("SMPTEOffset %02d:%02d:%02d:%02d.%02d", m.Hours, m.Minutes, m.Seconds, m.Frames, m.SubFrames)
}

// TimeSignature stores the denominator as a power of two, as the file does.
type TimeSignature struct {
	meta
	Numerator                   uint8
	DenominatorPower            uint8
	ClocksPerClick              uint8
	ThirtySecondNotesPerQuarter uint8
}

// NewTimeSignature builds num/2^power with the standard 24 clocks per click
// and 8 thirty-second notes per quarter.
func NewTimeSignature(num, power uint8) TimeSignature {
	return TimeSignature{Numerator: num, DenominatorPower: power, ClocksPerClick: 24, ThirtySecondNotesPerQuarter: 8}
}

func (TimeSignature) MetaType() MetaType { return MetaTimeSignature }
func (m TimeSignature) payload() []byte {
	return []byte{m.Numerator, m.DenominatorPower, m.ClocksPerClick, m.ThirtySecondNotesPerQuarter}
}
func (m TimeSignature) String() string {
	return fmt.Sprintf("TimeSignature %d/%d %d %d", m.Numerator, m.Denominator(), m.ClocksPerClick, m.ThirtySecondNotesPerQuarter)
}

// MaxDenominatorPower bounds the denominator at 128.
const MaxDenominatorPower = 7

// Denominator returns 2^DenominatorPower.
func (m TimeSignature) Denominator() int64 {
	return int64(1) << (m.DenominatorPower & 0x1F)
}

type KeySignature struct {
	meta
	Key   int8  // -7 (7 flats) .. 7 (7 sharps)
	Scale uint8 // 0 major, 1 minor
}

func NewKeySignature(key int8, scale uint8) KeySignature {
	return KeySignature{Key: key, Scale: scale}
}

func (KeySignature) MetaType() MetaType { return MetaKeySignature }
func (m KeySignature) payload() []byte  { return []byte{byte(m.Key), m.Scale} }
func (m KeySignature) String() string   { return fmt.Sprintf("KeySignature %d %d", m.Key, m.Scale) }

type SequencerSpecific struct {
	meta
	Data []byte
}

func (SequencerSpecific) MetaType() MetaType { return MetaSequencerSpecific }
func (m SequencerSpecific) payload() []byte  { return m.Data }
func (m SequencerSpecific) String() string   { return fmt.Sprintf("SequencerSpecific % X", m.Data) }

// UnknownMeta keeps a meta event whose sub-type was not recognised, or whose
// payload length did not fit its sub-type.
type UnknownMeta struct {
	meta
	Type MetaType
	Data []byte
}

func (m UnknownMeta) MetaType() MetaType { return m.Type }
func (m UnknownMeta) payload() []byte    { return m.Data }
func (m UnknownMeta) String() string     { return fmt.Sprintf("UnknownMeta 0x%02X % X", uint8(m.Type), m.Data) }

// Default values from the Standard MIDI File 1.0 document.
var (
	DefaultSetTempo      = SetTempo{MicrosecondsPerQuarterNote: DefaultTempo}
	DefaultTimeSignature = NewTimeSignature(4, 2)
	DefaultKeySignature  = KeySignature{}
)
