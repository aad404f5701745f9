package smf

import (
	"fmt"

	"github.com/pkg/errors"
)

// Policy selects how the reader reacts to one kind of malformed input.
// The zero value is Abort.
type Policy uint8

const (
	Abort         Policy = iota // fail the read
	Ignore                      // accept the anomaly and continue
	SnapToLimits                // clamp an out-of-range value to its nearest valid value
	ReadValid                   // keep the low 7 bits of a data byte
	ReadAsUnknown               // keep an unknown chunk verbatim
	Skip                        // drop an unknown chunk
	AsNoteOn                    // keep a Note On with velocity 0 as Note On
	AsNoteOff                   // turn a Note On with velocity 0 into Note Off
)

var policyNames = []string{
	Abort:         "abort",
	Ignore:        "ignore",
	SnapToLimits:  "snap-to-limits",
	ReadValid:     "read-valid",
	ReadAsUnknown: "read-as-unknown",
	Skip:          "skip",
	AsNoteOn:      "note-on",
	AsNoteOff:     "note-off",
}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

func (p Policy) MarshalText() ([]byte, error) {
	if int(p) >= len(policyNames) {
		return nil, errors.Errorf("smf: unknown policy %d", int(p))
	}
	return []byte(policyNames[p]), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	for i, name := range policyNames {
		if name == string(text) {
			*p = Policy(i)
			return nil
		}
	}
	return errors.Errorf("smf: unknown policy %q", text)
}

// Action is what the decoder does at the point of an anomaly.
type Action uint8

const (
	Fail   Action = iota // return an *Error
	Accept               // keep what was read and continue
	Clamp                // replace a value with the nearest valid one
	Mask                 // replace a data byte with its low 7 bits
	Drop                 // discard the offending object and continue
)

// policyTable lists, per anomaly kind, every policy the caller may choose and
// the action it maps to. Kinds missing a policy reject it in Validate.
var policyTable = map[ErrorKind]map[Policy]Action{
	KindInvalidChannelEventParameterValue: {Abort: Fail, SnapToLimits: Clamp, ReadValid: Mask},
	KindInvalidMetaEventParameterValue:    {Abort: Fail, SnapToLimits: Clamp},
	KindInvalidChunkSize:                  {Abort: Fail, Ignore: Accept},
	KindMissedEndOfTrack:                  {Abort: Fail, Ignore: Accept},
	KindNoHeaderChunk:                     {Abort: Fail, Ignore: Accept},
	KindNotEnoughBytes:                    {Abort: Fail, Ignore: Accept},
	KindUnknownFileFormat:                 {Abort: Fail, Ignore: Accept},
	KindUnknownChunkID:                    {Abort: Fail, ReadAsUnknown: Accept, Skip: Drop},
	KindUnexpectedRunningStatus:           {Abort: Fail},
	KindUnknownChannelEvent:               {Abort: Fail},
}

// Decide maps an anomaly and the configured policy to an action.
// Combinations outside the table fail closed.
func Decide(kind ErrorKind, p Policy) Action {
	if a, ok := policyTable[kind][p]; ok {
		return a
	}
	return Fail
}

// ReadSettings holds one policy per anomaly kind. The zero value aborts on
// every anomaly including unknown chunk ids; SilentNoteOn treats its zero
// value like AsNoteOn.
type ReadSettings struct {
	InvalidChannelEventParameterValue Policy `json:"invalidChannelEventParameterValue"`
	InvalidMetaEventParameterValue    Policy `json:"invalidMetaEventParameterValue"`
	InvalidChunkSize                  Policy `json:"invalidChunkSize"`
	MissedEndOfTrack                  Policy `json:"missedEndOfTrack"`
	NoHeaderChunk                     Policy `json:"noHeaderChunk"`
	NotEnoughBytes                    Policy `json:"notEnoughBytes"`
	UnknownFileFormat                 Policy `json:"unknownFileFormat"`
	UnknownChunkID                    Policy `json:"unknownChunkId"`
	SilentNoteOn                      Policy `json:"silentNoteOn"`
}

// DefaultReadSettings fails on every anomaly, keeps unknown chunks and keeps
// silent Note On events as they are.
func DefaultReadSettings() ReadSettings {
	return ReadSettings{
		UnknownChunkID: ReadAsUnknown,
		SilentNoteOn:   AsNoteOn,
	}
}

// policyFor returns the configured policy for an anomaly kind.
func (s *ReadSettings) policyFor(kind ErrorKind) Policy {
	switch kind {
	case KindInvalidChannelEventParameterValue:
		return s.InvalidChannelEventParameterValue
	case KindInvalidMetaEventParameterValue:
		return s.InvalidMetaEventParameterValue
	case KindInvalidChunkSize:
		return s.InvalidChunkSize
	case KindMissedEndOfTrack:
		return s.MissedEndOfTrack
	case KindNoHeaderChunk:
		return s.NoHeaderChunk
	case KindNotEnoughBytes:
		return s.NotEnoughBytes
	case KindUnknownFileFormat:
		return s.UnknownFileFormat
	case KindUnknownChunkID:
		return s.UnknownChunkID
	}
	return Abort
}

// Validate rejects policies that make no sense for their anomaly kind.
func (s *ReadSettings) Validate() error {
	for kind := range policyTable {
		p := s.policyFor(kind)
		if _, ok := policyTable[kind][p]; !ok {
			return errors.Wrapf(ErrInvalidSettings, "policy %s not allowed for %s", p, kind)
		}
	}
	switch s.SilentNoteOn {
	case Abort, AsNoteOn, AsNoteOff:
	default:
		return errors.Wrapf(ErrInvalidSettings, "policy %s not allowed for silent note on", s.SilentNoteOn)
	}
	return nil
}
