package smf

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"

	"go-smf/debug"
)

// CompressionPolicy is a set of size-reducing transformations applied while
// writing. The caller's File is never modified.
type CompressionPolicy uint16

const NoCompression CompressionPolicy = 0

const (
	// UseRunningStatus omits a channel status byte equal to the previous one.
	UseRunningStatus CompressionPolicy = 1 << iota
	// NoteOffAsSilentNoteOn writes Note Off as Note On with velocity 0, so
	// runs of note events share a status byte.
	NoteOffAsSilentNoteOn
	DeleteUnknownMetaEvents
	DeleteDefaultKeySignature
	DeleteDefaultSetTempo
	DeleteDefaultTimeSignature
	DeleteUnknownChunks

	AllCompression = UseRunningStatus | NoteOffAsSilentNoteOn | DeleteUnknownMetaEvents |
		DeleteDefaultKeySignature | DeleteDefaultSetTempo | DeleteDefaultTimeSignature | DeleteUnknownChunks
)

var compressionNames = []struct {
	p    CompressionPolicy
	name string
}{
	{UseRunningStatus, "use-running-status"},
	{NoteOffAsSilentNoteOn, "note-off-as-silent-note-on"},
	{DeleteUnknownMetaEvents, "delete-unknown-meta-events"},
	{DeleteDefaultKeySignature, "delete-default-key-signature"},
	{DeleteDefaultSetTempo, "delete-default-set-tempo"},
	{DeleteDefaultTimeSignature, "delete-default-time-signature"},
	{DeleteUnknownChunks, "delete-unknown-chunks"},
}

func (p CompressionPolicy) Has(q CompressionPolicy) bool {
	return p&q == q
}

// Names lists the set policies in declaration order.
func (p CompressionPolicy) Names() []string {
	names := []string{}
	for _, c := range compressionNames {
		if p.Has(c.p) {
			names = append(names, c.name)
		}
	}
	return names
}

func (p CompressionPolicy) String() string {
	if p == NoCompression {
		return "none"
	}
	return strings.Join(p.Names(), ",")
}

// ParseCompression parses one policy name, "none" or "all".
func ParseCompression(name string) (CompressionPolicy, error) {
	switch name {
	case "none":
		return NoCompression, nil
	case "all":
		return AllCompression, nil
	}
	for _, c := range compressionNames {
		if c.name == name {
			return c.p, nil
		}
	}
	return 0, errors.Errorf("smf: unknown compression policy %q", name)
}

// MarshalJSON writes the set as a list of names.
func (p CompressionPolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Names())
}

func (p *CompressionPolicy) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return errors.Wrap(err, "compression policy")
	}
	*p = NoCompression
	for _, n := range names {
		q, err := ParseCompression(n)
		if err != nil {
			return err
		}
		*p |= q
	}
	return nil
}

// prepareChunks returns the chunks to write: track chunks are replaced by
// prepared copies and unknown chunks are dropped when asked.
func prepareChunks(chunks []Chunk, p CompressionPolicy) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		switch v := c.(type) {
		case *TrackChunk:
			out = append(out, &TrackChunk{Events: prepareEvents(v.Events, p)})
		case *UnknownChunk:
			if p.Has(DeleteUnknownChunks) {
				debug.Log("compress", "dropped chunk %q", v.ChunkID)
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// prepareEvents applies p to a copy of events. Only the last End-Of-Track is
// kept, one is appended if missing, and every dropped event passes its delta
// to the next one so absolute times are unchanged.
func prepareEvents(events []Event, p CompressionPolicy) []Event {
	out := make([]Event, 0, len(events)+1)
	var carry uint64
	for i, ev := range events {
		_, eot := ev.Message.(EndOfTrack)
		if (eot && i != len(events)-1) || dropped(ev.Message, p) {
			carry += uint64(ev.Delta)
			continue
		}
		m := ev.Message
		if cm, ok := m.(ChannelMessage); ok && cm.Type == NoteOffType && p.Has(NoteOffAsSilentNoteOn) {
			cm.Type, cm.Data2 = NoteOnType, 0
			m = cm
		}
		out = append(out, Event{Delta: saturate(carry + uint64(ev.Delta)), Message: m})
		carry = 0
	}

	if n := len(out); n == 0 || !isEndOfTrack(out[n-1].Message) {
		out = append(out, Event{Delta: saturate(carry), Message: EndOfTrack{}})
	}
	return out
}

func dropped(m Message, p CompressionPolicy) bool {
	var drop bool
	switch v := m.(type) {
	case UnknownMeta:
		drop = p.Has(DeleteUnknownMetaEvents)
	case KeySignature:
		drop = p.Has(DeleteDefaultKeySignature) && v == DefaultKeySignature
	case SetTempo:
		drop = p.Has(DeleteDefaultSetTempo) && v == DefaultSetTempo
	case TimeSignature:
		drop = p.Has(DeleteDefaultTimeSignature) && v == DefaultTimeSignature
	}
	if drop {
		debug.Log("compress", "dropped %s", m)
	}
	return drop
}

func isEndOfTrack(m Message) bool {
	_, ok := m.(EndOfTrack)
	return ok
}

// saturate keeps an oversized carried delta out of uint32 wraparound; the
// encoder then reports it as a variable-length overflow.
func saturate(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
