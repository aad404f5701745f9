package smf

import (
	"io"

	"github.com/pkg/errors"
)

// WriteSettings controls how a file is serialised.
type WriteSettings struct {
	Compression CompressionPolicy `json:"compression"`
}

func DefaultWriteSettings() WriteSettings {
	return WriteSettings{Compression: NoCompression}
}

// Write serialises f to w and returns the number of bytes written.
// A nil settings value means DefaultWriteSettings.
func Write(w io.Writer, f *File, s *WriteSettings) (int64, error) {
	settings := DefaultWriteSettings()
	if s != nil {
		settings = *s
	}
	buf, err := appendFile(nil, f, settings)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), errors.WithStack(err)
}

// WriteTo writes f with default settings.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	return Write(w, f, nil)
}

func appendFile(dst []byte, f *File, s WriteSettings) ([]byte, error) {
	if !f.Format.Valid() {
		return dst, errors.Wrapf(ErrInvalidFormat, "%d", uint16(f.Format))
	}
	if f.Division == nil {
		return dst, errors.Wrap(ErrInvalidDivision, "missing")
	}
	div, err := f.Division.encode()
	if err != nil {
		return dst, err
	}

	chunks := prepareChunks(f.Chunks, s.Compression)
	tracks := 0
	for _, c := range chunks {
		if _, ok := c.(*TrackChunk); ok {
			tracks++
		}
	}
	if tracks > 0xFFFF {
		return dst, errors.Wrapf(ErrTooManyTracks, "%d", tracks)
	}
	if f.Format == SingleTrack && tracks > 1 {
		return dst, errors.Wrapf(ErrTooManyTracks, "%d tracks in a single-track file", tracks)
	}

	header := make([]byte, 0, 6)
	header = appendUint16(header, uint16(f.Format))
	header = appendUint16(header, uint16(tracks))
	header = appendUint16(header, div)
	if dst, err = appendChunk(dst, HeaderID, header); err != nil {
		return dst, err
	}

	for i, c := range chunks {
		switch v := c.(type) {
		case *TrackChunk:
			e := encoder{running: s.Compression.Has(UseRunningStatus)}
			for j, ev := range v.Events {
				if err := e.writeEvent(ev); err != nil {
					return dst, errors.Wrapf(err, "chunk %d, event %d", i, j)
				}
			}
			dst, err = appendChunk(dst, TrackID, e.buf)
		case *UnknownChunk:
			dst, err = appendChunk(dst, v.ChunkID, v.Data)
		}
		if err != nil {
			return dst, errors.Wrapf(err, "chunk %d", i)
		}
	}
	return dst, nil
}
