package smf

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
)

// errShort reports that the source ran dry in the middle of an object.
// The decoder turns it into a NotEnoughBytes anomaly.
var errShort = errors.New("smf: short read")

// reader is the sequential byte source shared by the chunk framer and the
// event decoder. It never seeks; peek is only used to classify a boundary.
type reader struct {
	br  *bufio.Reader
	ctx context.Context
	pos int64
}

func newReader(ctx context.Context, r io.Reader) *reader {
	if ctx == nil {
		ctx = context.Background()
	}
	return &reader{br: bufio.NewReader(r), ctx: ctx}
}

// cancelled is checked at chunk and event boundaries.
func (r *reader) cancelled() error {
	return r.ctx.Err()
}

func (r *reader) ReadByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, errShort
		}
		return 0, errors.WithStack(err)
	}
	r.pos++
	return b, nil
}

// read returns exactly n bytes, or the bytes available and errShort.
func (r *reader) read(n uint32) ([]byte, error) {
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, r.br, int64(n))
	r.pos += got
	if err == io.EOF {
		return buf.Bytes(), errShort
	}
	if err != nil {
		return buf.Bytes(), errors.WithStack(err)
	}
	return buf.Bytes(), nil
}

// skip discards up to n bytes and reports how many were skipped.
func (r *reader) skip(n int64) (int64, error) {
	got, err := io.CopyN(io.Discard, r.br, n)
	r.pos += got
	if err == io.EOF {
		return got, errShort
	}
	return got, errors.WithStack(err)
}

// peek returns up to n upcoming bytes without consuming them.
func (r *reader) peek(n int) []byte {
	b, _ := r.br.Peek(n)
	return b
}

func (r *reader) atEOF() bool {
	_, err := r.br.Peek(1)
	return err != nil
}

// readVarLen reads a variable-length quantity of at most 4 bytes.
func (r *reader) readVarLen() (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return v, err
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return v, errors.Wrapf(ErrVarLenOverflow, "more than 4 bytes at offset %d", r.pos)
}
