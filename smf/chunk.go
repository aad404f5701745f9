package smf

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	HeaderID = "MThd"
	TrackID  = "MTrk"
)

// Chunk is a top-level unit of a file: *HeaderChunk, *TrackChunk or
// *UnknownChunk.
type Chunk interface {
	ID() string
	chunk()
}

// HeaderChunk is the header as stored in the stream. File keeps its fields
// directly; the writer builds one from them.
type HeaderChunk struct {
	Format     uint16
	TrackCount uint16
	Division   TimeDivision
}

func (*HeaderChunk) ID() string { return HeaderID }
func (*HeaderChunk) chunk()     {}

// TrackChunk holds the events of one track in stream order.
type TrackChunk struct {
	Events []Event
}

func (*TrackChunk) ID() string { return TrackID }
func (*TrackChunk) chunk()     {}

// Clone returns a deep copy.
func (t *TrackChunk) Clone() *TrackChunk {
	events := make([]Event, len(t.Events))
	for i, ev := range t.Events {
		events[i] = Event{Delta: ev.Delta, Message: CloneMessage(ev.Message)}
	}
	return &TrackChunk{Events: events}
}

// UnknownChunk keeps a chunk with an unrecognised id verbatim.
type UnknownChunk struct {
	ChunkID string
	Data    []byte
}

func (c *UnknownChunk) ID() string { return c.ChunkID }
func (*UnknownChunk) chunk()       {}

func (c *UnknownChunk) String() string {
	return fmt.Sprintf("%q (%d bytes)", c.ChunkID, len(c.Data))
}

// appendChunk frames payload with its id and 32-bit length.
func appendChunk(dst []byte, id string, payload []byte) ([]byte, error) {
	if len(id) != 4 {
		return dst, errors.Wrapf(ErrInvalidChunkID, "%q", id)
	}
	if uint64(len(payload)) > 0xFFFFFFFF {
		return dst, errors.Errorf("smf: %s chunk of %d bytes is too large", id, len(payload))
	}
	dst = append(dst, id...)
	dst = appendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}
