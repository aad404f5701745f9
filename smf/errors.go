package smf

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a malformed-input condition found while reading.
type ErrorKind int

const (
	KindInvalidChannelEventParameterValue ErrorKind = iota + 1
	KindInvalidMetaEventParameterValue
	KindInvalidChunkSize
	KindMissedEndOfTrack
	KindNoHeaderChunk
	KindNotEnoughBytes
	KindUnexpectedRunningStatus
	KindUnknownChannelEvent
	KindUnknownFileFormat
	KindUnknownChunkID
)

var kindNames = map[ErrorKind]string{
	KindInvalidChannelEventParameterValue: "invalid channel event parameter value",
	KindInvalidMetaEventParameterValue:    "invalid meta event parameter value",
	KindInvalidChunkSize:                  "invalid chunk size",
	KindMissedEndOfTrack:                  "missed end of track",
	KindNoHeaderChunk:                     "no header chunk",
	KindNotEnoughBytes:                    "not enough bytes",
	KindUnexpectedRunningStatus:           "unexpected running status",
	KindUnknownChannelEvent:               "unknown channel event",
	KindUnknownFileFormat:                 "unknown file format",
	KindUnknownChunkID:                    "unknown chunk id",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a read anomaly that its policy turned into a failure.
type Error struct {
	Kind   ErrorKind
	Offset int64 // byte offset in the source stream
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("smf: %s at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("smf: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Read-side sentinels, one per ErrorKind.
var (
	ErrInvalidChannelEventParameterValue = &Error{Kind: KindInvalidChannelEventParameterValue}
	ErrInvalidMetaEventParameterValue    = &Error{Kind: KindInvalidMetaEventParameterValue}
	ErrInvalidChunkSize                  = &Error{Kind: KindInvalidChunkSize}
	ErrMissedEndOfTrack                  = &Error{Kind: KindMissedEndOfTrack}
	ErrNoHeaderChunk                     = &Error{Kind: KindNoHeaderChunk}
	ErrNotEnoughBytes                    = &Error{Kind: KindNotEnoughBytes}
	ErrUnexpectedRunningStatus           = &Error{Kind: KindUnexpectedRunningStatus}
	ErrUnknownChannelEvent               = &Error{Kind: KindUnknownChannelEvent}
	ErrUnknownFileFormat                 = &Error{Kind: KindUnknownFileFormat}
	ErrUnknownChunkID                    = &Error{Kind: KindUnknownChunkID}
)

// Write-side errors. These have no recovery policy.
var (
	ErrVarLenOverflow  = errors.New("smf: value exceeds variable-length quantity range")
	ErrInvalidChunkID  = errors.New("smf: chunk id must be 4 bytes")
	ErrInvalidFormat   = errors.New("smf: invalid file format")
	ErrTooManyTracks   = errors.New("smf: too many track chunks")
	ErrInvalidDivision = errors.New("smf: invalid time division")
	ErrInvalidSettings = errors.New("smf: invalid settings")
	ErrInvalidMessage  = errors.New("smf: message value out of range")
)
