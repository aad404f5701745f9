package smf

import (
	"context"
	"io"

	"go-smf/debug"
)

// File is a decoded Standard MIDI File. The header chunk is not part of
// Chunks; its fields live on File and are rebuilt on write.
type File struct {
	Format Format
	// OriginalFormat is the format word as stored. It differs from Format
	// only when an unknown format was accepted.
	OriginalFormat uint16
	Division       TimeDivision
	// Chunks holds track and unknown chunks in stream order.
	Chunks []Chunk
}

// NewFile builds a file from tracks. One track gives a single-track file,
// anything else multi-track.
func NewFile(division TimeDivision, tracks ...*TrackChunk) *File {
	f := &File{Format: MultiTrack, OriginalFormat: uint16(MultiTrack), Division: division}
	if len(tracks) == 1 {
		f.Format, f.OriginalFormat = SingleTrack, uint16(SingleTrack)
	}
	for _, t := range tracks {
		f.Chunks = append(f.Chunks, t)
	}
	return f
}

// Tracks returns the track chunks in order.
func (f *File) Tracks() []*TrackChunk {
	var out []*TrackChunk
	for _, c := range f.Chunks {
		if t, ok := c.(*TrackChunk); ok {
			out = append(out, t)
		}
	}
	return out
}

// UnknownChunks returns the chunks that were kept verbatim.
func (f *File) UnknownChunks() []*UnknownChunk {
	var out []*UnknownChunk
	for _, c := range f.Chunks {
		if u, ok := c.(*UnknownChunk); ok {
			out = append(out, u)
		}
	}
	return out
}

// Header returns the header chunk the writer would emit.
func (f *File) Header() *HeaderChunk {
	return &HeaderChunk{Format: uint16(f.Format), TrackCount: uint16(len(f.Tracks())), Division: f.Division}
}

// Clone returns a deep copy.
func (f *File) Clone() *File {
	c := *f
	c.Chunks = make([]Chunk, 0, len(f.Chunks))
	for _, ch := range f.Chunks {
		switch v := ch.(type) {
		case *TrackChunk:
			c.Chunks = append(c.Chunks, v.Clone())
		case *UnknownChunk:
			c.Chunks = append(c.Chunks, &UnknownChunk{ChunkID: v.ChunkID, Data: cloneBytes(v.Data)})
		}
	}
	return &c
}

// Read decodes a file from r. A nil settings value means DefaultReadSettings.
func Read(r io.Reader, s *ReadSettings) (*File, error) {
	return ReadContext(context.Background(), r, s)
}

// ReadContext is Read with cancellation, checked between chunks and events.
func ReadContext(ctx context.Context, r io.Reader, s *ReadSettings) (*File, error) {
	settings := DefaultReadSettings()
	if s != nil {
		settings = *s
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	fr := &fileReader{r: newReader(ctx, r)}
	fr.d = decoder{r: fr.r, s: &settings}
	return fr.readFile()
}

type fileReader struct {
	r *reader
	d decoder
}

func (fr *fileReader) readFile() (*File, error) {
	r, d := fr.r, &fr.d
	f := &File{
		Format:         MultiTrack,
		OriginalFormat: uint16(MultiTrack),
		Division:       TicksPerQuarterNote(DefaultTicksPerQuarterNote),
	}

	first := true
	for {
		if err := r.cancelled(); err != nil {
			return nil, err
		}
		if r.atEOF() {
			break
		}

		offset := r.pos
		id, err := r.read(4)
		if err == nil {
			var size []byte
			size, err = r.read(4)
			if err == nil {
				err = fr.readChunk(f, string(id), uint32At(size), offset, first)
				first = false
				if err == nil {
					continue
				}
			}
		}
		if err = d.check(err, "chunk header"); err == errTruncated {
			break
		}
		return nil, err
	}

	if first {
		if _, err := d.anomaly(KindNoHeaderChunk, 0, "empty stream"); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (fr *fileReader) readChunk(f *File, id string, size uint32, offset int64, first bool) error {
	if first {
		if id == HeaderID {
			return fr.readHeader(f, size)
		}
		if _, err := fr.d.anomaly(KindNoHeaderChunk, offset, "first chunk is %q", id); err != nil {
			return err
		}
	}

	switch id {
	case TrackID:
		t, err := fr.readTrack(size)
		if t != nil {
			f.Chunks = append(f.Chunks, t)
		}
		return err
	}
	return fr.readUnknown(f, id, size, offset)
}

func (fr *fileReader) readHeader(f *File, size uint32) error {
	start := fr.r.pos
	if size < 6 {
		if _, err := fr.d.anomaly(KindInvalidChunkSize, start, "header length %d", size); err != nil {
			return err
		}
	}
	n := size
	if n > 6 {
		n = 6
	}
	data, err := fr.r.read(n)
	if err != nil {
		return err
	}
	data = append(data, make([]byte, 6-len(data))...)

	format := uint16At(data[0:])
	f.OriginalFormat = format
	if Format(format).Valid() {
		f.Format = Format(format)
	} else {
		if _, err := fr.d.anomaly(KindUnknownFileFormat, start, "format %d", format); err != nil {
			return err
		}
		f.Format = MultiTrack
	}
	f.Division = decodeDivision(uint16At(data[4:]))
	debug.Log("smf", "header: %s, %d tracks declared, %s", f.Format, uint16At(data[2:]), f.Division)

	// Longer headers are allowed; the extra bytes are skipped.
	if rest := int64(size) - 6; rest > 0 {
		_, err := fr.r.skip(rest)
		return err
	}
	return nil
}

// readTrack decodes events until End-Of-Track. On a truncation that was
// ignored it returns the partial track together with errTruncated.
func (fr *fileReader) readTrack(size uint32) (*TrackChunk, error) {
	r, d := fr.r, &fr.d
	d.resetTrack()
	start := r.pos
	end := start + int64(size)
	t := &TrackChunk{}

	for {
		if err := r.cancelled(); err != nil {
			return nil, err
		}
		if r.pos == end && fr.atChunkBoundary() {
			if _, err := d.anomaly(KindMissedEndOfTrack, r.pos, "track of %d events", len(t.Events)); err != nil {
				return nil, err
			}
			return t, nil
		}

		ev, err := d.readEvent()
		if err == errTruncated {
			return t, err
		}
		if err != nil {
			return nil, err
		}
		t.Events = append(t.Events, ev)
		if _, ok := ev.Message.(EndOfTrack); ok {
			break
		}
	}

	if r.pos == end {
		return t, nil
	}
	if _, err := d.anomaly(KindInvalidChunkSize, start, "declared %d bytes, decoded %d", size, r.pos-start); err != nil {
		return nil, err
	}
	if r.pos < end {
		_, err := r.skip(end - r.pos)
		if err == errShort {
			// The declared size ran past the end of the stream. The track
			// itself is complete, so the file ends here.
			debug.Log("smf", "track at offset %d overstated by %d bytes", start, end-r.pos)
			return t, errTruncated
		}
		if err != nil {
			return t, err
		}
	}
	return t, nil
}

// atChunkBoundary reports whether the stream ends here or the next four
// bytes read as a chunk id, known or not. Ids are printable ASCII.
func (fr *fileReader) atChunkBoundary() bool {
	next := fr.r.peek(4)
	if len(next) == 0 {
		return true
	}
	return isChunkID(next)
}

func isChunkID(b []byte) bool {
	if len(b) != 4 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

func (fr *fileReader) readUnknown(f *File, id string, size uint32, offset int64) error {
	switch Decide(KindUnknownChunkID, fr.d.s.UnknownChunkID) {
	case Fail:
		return &Error{Kind: KindUnknownChunkID, Offset: offset, Detail: id}
	case Drop:
		debug.Log("smf", "skipping chunk %q of %d bytes at offset %d", id, size, offset)
		_, err := fr.r.skip(int64(size))
		return err
	}
	data, err := fr.r.read(size)
	if err != nil {
		return err
	}
	f.Chunks = append(f.Chunks, &UnknownChunk{ChunkID: id, Data: data})
	return nil
}
