package smf

import (
	"fmt"

	"github.com/pkg/errors"
)

// Format is the header's file format word.
type Format uint16

const (
	SingleTrack   Format = 0
	MultiTrack    Format = 1
	MultiSequence Format = 2
)

func (f Format) Valid() bool {
	return f <= MultiSequence
}

func (f Format) String() string {
	switch f {
	case SingleTrack:
		return "single-track"
	case MultiTrack:
		return "multi-track"
	case MultiSequence:
		return "multi-sequence"
	}
	return fmt.Sprintf("Format(%d)", uint16(f))
}

// TimeDivision is either TicksPerQuarterNote or SMPTEDivision.
type TimeDivision interface {
	String() string
	encode() (uint16, error)
}

// DefaultTicksPerQuarterNote is used when a file has no header chunk.
const DefaultTicksPerQuarterNote = 96

// TicksPerQuarterNote is a metrical division. Valid values are 1..0x7FFF.
type TicksPerQuarterNote uint16

func (d TicksPerQuarterNote) String() string {
	return fmt.Sprintf("%d ticks/quarter", uint16(d))
}

func (d TicksPerQuarterNote) encode() (uint16, error) {
	if d == 0 || d > 0x7FFF {
		return 0, errors.Wrapf(ErrInvalidDivision, "%d ticks per quarter note", uint16(d))
	}
	return uint16(d), nil
}

// SMPTEDivision is a time-code division. FramesPerSecond is one of 24, 25,
// 29 (30 drop-frame, 29.97 fps) or 30.
type SMPTEDivision struct {
	FramesPerSecond uint8
	TicksPerFrame   uint8
}

func (d SMPTEDivision) String() string {
	return fmt.Sprintf("SMPTE %d fps, %d ticks/frame", d.FramesPerSecond, d.TicksPerFrame)
}

// FrameRate returns frames per second, with 29 meaning 29.97.
func (d SMPTEDivision) FrameRate() float64 {
	if d.FramesPerSecond == 29 {
		return 29.97
	}
	return float64(d.FramesPerSecond)
}

func (d SMPTEDivision) encode() (uint16, error) {
	switch d.FramesPerSecond {
	case 24, 25, 29, 30:
	default:
		return 0, errors.Wrapf(ErrInvalidDivision, "%d frames per second", d.FramesPerSecond)
	}
	if d.TicksPerFrame == 0 {
		return 0, errors.Wrap(ErrInvalidDivision, "zero ticks per frame")
	}
	return uint16(byte(-int8(d.FramesPerSecond)))<<8 | uint16(d.TicksPerFrame), nil
}

// decodeDivision interprets the header's division word. The high bit selects
// SMPTE, whose high byte is the negated frame rate.
func decodeDivision(v uint16) TimeDivision {
	if v&0x8000 == 0 {
		return TicksPerQuarterNote(v)
	}
	return SMPTEDivision{
		FramesPerSecond: uint8(-int8(v >> 8)),
		TicksPerFrame:   uint8(v),
	}
}
