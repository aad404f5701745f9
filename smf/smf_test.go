package smf

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// exampleFile is the format 1 example from the Standard MIDI File 1.0 document, written
// with running status.
var exampleFile = []byte{
	// MThd, length 6, format 1, four tracks, 96 ticks per quarter note
	0x4d, 0x54, 0x68, 0x64, 0, 0, 0, 6, 0, 1, 0, 4, 0, 0x60,
	// tempo track
	0x4d, 0x54, 0x72, 0x6b, 0, 0, 0, 0x14,
	0, 0xff, 0x58, 4, 4, 2, 0x18, 8,
	0, 0xff, 0x51, 3, 7, 0xa1, 0x20,
	0x83, 0, 0xff, 0x2f, 0,
	// first music track
	0x4d, 0x54, 0x72, 0x6b, 0, 0, 0, 0x10,
	0, 0xc0, 5,
	0x81, 0x40, 0x90, 0x4c, 0x20,
	0x81, 0x40, 0x4c, 0,
	0, 0xff, 0x2f, 0,
	// second music track
	0x4d, 0x54, 0x72, 0x6b, 0, 0, 0, 0xf,
	0, 0xc1, 0x2e,
	0x60, 0x91, 0x43, 0x40,
	0x82, 0x20, 0x43, 0,
	0, 0xff, 0x2f, 0,
	// third music track
	0x4d, 0x54, 0x72, 0x6b, 0, 0, 0, 0x15,
	0, 0xc2, 0x46,
	0, 0x92, 0x30, 0x60,
	0, 0x3c, 0x60,
	0x83, 0, 0x30, 0,
	0, 0x3c, 0,
	0, 0xff, 0x2f, 0,
}

func chunkBytes(id string, payload ...byte) []byte {
	return sizedChunk(id, uint32(len(payload)), payload...)
}

func sizedChunk(id string, size uint32, payload ...byte) []byte {
	b := append([]byte(id), byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	return append(b, payload...)
}

func headerBytes(format, tracks, division uint16) []byte {
	return chunkBytes(HeaderID,
		byte(format>>8), byte(format),
		byte(tracks>>8), byte(tracks),
		byte(division>>8), byte(division))
}

func join(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func checkEvents(t *testing.T, got []Event, want []Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Delta != want[i].Delta || !Equal(got[i].Message, want[i].Message) {
			t.Errorf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestReadExampleFile(t *testing.T) {
	f, err := Read(bytes.NewReader(exampleFile), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if f.Format != MultiTrack {
		t.Errorf("expected multi-track format, got %s", f.Format)
	}
	if f.Division != TicksPerQuarterNote(96) {
		t.Errorf("expected 96 ticks per quarter note, got %v", f.Division)
	}
	tracks := f.Tracks()
	if len(tracks) != 4 {
		t.Fatalf("expected 4 tracks, got %d", len(tracks))
	}

	checkEvents(t, tracks[0].Events, []Event{
		{0, DefaultTimeSignature},
		{0, DefaultSetTempo},
		{384, EndOfTrack{}},
	})
	checkEvents(t, tracks[1].Events, []Event{
		{0, ProgramChange(0, 5)},
		{192, NoteOn(0, 0x4c, 0x20)},
		{192, NoteOn(0, 0x4c, 0)},
		{0, EndOfTrack{}},
	})
	checkEvents(t, tracks[3].Events, []Event{
		{0, ProgramChange(2, 0x46)},
		{0, NoteOn(2, 0x30, 0x60)},
		{0, NoteOn(2, 0x3c, 0x60)},
		{384, NoteOn(2, 0x30, 0)},
		{0, NoteOn(2, 0x3c, 0)},
		{0, EndOfTrack{}},
	})
}

func TestWriteRunningStatusReproducesInput(t *testing.T) {
	f, err := Read(bytes.NewReader(exampleFile), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var compressed, plain bytes.Buffer
	n, err := Write(&compressed, f, &WriteSettings{Compression: UseRunningStatus})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != int64(len(exampleFile)) || !bytes.Equal(compressed.Bytes(), exampleFile) {
		t.Fatalf("expected the input bytes back, got % X", compressed.Bytes())
	}
	if _, err := f.WriteTo(&plain); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if plain.Len() <= compressed.Len() {
		t.Fatalf("expected running status to shrink output: %d vs %d", compressed.Len(), plain.Len())
	}

	again, err := Read(&plain, nil)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	for i, track := range again.Tracks() {
		checkEvents(t, track.Events, f.Tracks()[i].Events)
	}
}

// trackPayload writes a single track and returns the bytes of its MTrk payload.
func trackPayload(t *testing.T, events []Event, p CompressionPolicy) []byte {
	t.Helper()
	var buf bytes.Buffer
	f := NewFile(TicksPerQuarterNote(96), &TrackChunk{Events: events})
	if _, err := Write(&buf, f, &WriteSettings{Compression: p}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return buf.Bytes()[22:]
}

func TestRunningStatusScenario(t *testing.T) {
	events := []Event{
		{0, NoteOn(0, 50, 100)},
		{10, NoteOn(0, 51, 100)},
		{0, NoteOff(0, 50, 0)},
		{10, NoteOff(0, 51, 0)},
	}

	tests := []struct {
		name   string
		policy CompressionPolicy
		want   []byte
	}{
		{"none", NoCompression, []byte{
			0, 0x90, 50, 100, 10, 0x90, 51, 100, 0, 0x80, 50, 0, 10, 0x80, 51, 0, 0, 0xff, 0x2f, 0,
		}},
		{"running status", UseRunningStatus, []byte{
			0, 0x90, 50, 100, 10, 51, 100, 0, 0x80, 50, 0, 10, 51, 0, 0, 0xff, 0x2f, 0,
		}},
		{"silent note on", UseRunningStatus | NoteOffAsSilentNoteOn, []byte{
			0, 0x90, 50, 100, 10, 51, 100, 0, 50, 0, 10, 51, 0, 0, 0xff, 0x2f, 0,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trackPayload(t, events, tt.policy)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("expected % X, got % X", tt.want, got)
			}
		})
	}
}

func TestUnderstatedChunkSize(t *testing.T) {
	data := join(
		headerBytes(1, 2, 96),
		sizedChunk(TrackID, 8,
			0, 0x90, 0x3c, 0x40,
			0x10, 0x80, 0x3c, 0x40,
			0, 0xff, 0x2f, 0),
		chunkBytes(TrackID, 0, 0xc0, 5, 0, 0xff, 0x2f, 0),
	)

	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected invalid chunk size error, got %v", err)
	}

	s := DefaultReadSettings()
	s.InvalidChunkSize = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	tracks := f.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	checkEvents(t, tracks[0].Events, []Event{
		{0, NoteOn(0, 0x3c, 0x40)},
		{0x10, NoteOff(0, 0x3c, 0x40)},
		{0, EndOfTrack{}},
	})
	checkEvents(t, tracks[1].Events, []Event{
		{0, ProgramChange(0, 5)},
		{0, EndOfTrack{}},
	})
}

func TestPaddedChunk(t *testing.T) {
	data := join(
		headerBytes(0, 1, 96),
		chunkBytes(TrackID, 0, 0xff, 0x2f, 0, 0, 0),
	)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected invalid chunk size error, got %v", err)
	}
	s := DefaultReadSettings()
	s.InvalidChunkSize = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n := len(f.Tracks()[0].Events); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
}

func TestMissedEndOfTrack(t *testing.T) {
	data := join(
		headerBytes(1, 2, 96),
		chunkBytes(TrackID, 0, 0x90, 0x3c, 0x40, 0x10, 0x80, 0x3c, 0x40),
		chunkBytes(TrackID, 0, 0xff, 0x2f, 0),
	)

	var serr *Error
	_, err := Read(bytes.NewReader(data), nil)
	if !errors.As(err, &serr) || serr.Kind != KindMissedEndOfTrack {
		t.Fatalf("expected missed end of track error, got %v", err)
	}

	s := DefaultReadSettings()
	s.MissedEndOfTrack = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(f.Tracks()) != 2 || len(f.Tracks()[0].Events) != 2 {
		t.Fatalf("expected a partial track of 2 events and a second track, got %v", f.Tracks())
	}

	// the writer closes the track again
	payload := trackPayload(t, f.Tracks()[0].Events, NoCompression)
	if !bytes.HasSuffix(payload, []byte{0, 0xff, 0x2f, 0}) {
		t.Fatalf("expected End-Of-Track to be appended, got % X", payload)
	}
}

func TestMissedEndOfTrackAtEOF(t *testing.T) {
	data := join(
		headerBytes(0, 1, 96),
		chunkBytes(TrackID, 0, 0x90, 0x3c, 0x40),
	)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrMissedEndOfTrack) {
		t.Fatalf("expected missed end of track error, got %v", err)
	}
}

func TestMissedEndOfTrackBeforeUnknownChunk(t *testing.T) {
	data := join(
		headerBytes(0, 1, 96),
		chunkBytes(TrackID, 0, 0x90, 0x3c, 0x40),
		chunkBytes("XFIH", 1, 2, 3),
	)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrMissedEndOfTrack) {
		t.Fatalf("expected missed end of track error, got %v", err)
	}

	s := DefaultReadSettings()
	s.MissedEndOfTrack = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(f.Tracks()) != 1 {
		t.Fatalf("expected 1 track, got %d", len(f.Tracks()))
	}
	checkEvents(t, f.Tracks()[0].Events, []Event{{0, NoteOn(0, 0x3c, 0x40)}})
	unknown := f.UnknownChunks()
	if len(unknown) != 1 || unknown[0].ChunkID != "XFIH" || !bytes.Equal(unknown[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("expected the XFIH chunk after the track, got %v", unknown)
	}
}

func TestOverstatedFinalTrack(t *testing.T) {
	data := join(
		headerBytes(0, 1, 96),
		sizedChunk(TrackID, 100, 0, 0xff, 0x2f, 0),
	)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected invalid chunk size error, got %v", err)
	}

	// the shortfall is part of the bad size, not a second anomaly
	s := DefaultReadSettings()
	s.InvalidChunkSize = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(f.Tracks()) != 1 {
		t.Fatalf("expected 1 track, got %d", len(f.Tracks()))
	}
	checkEvents(t, f.Tracks()[0].Events, []Event{{0, EndOfTrack{}}})
}

func TestNotEnoughBytes(t *testing.T) {
	data := join(
		headerBytes(0, 1, 96),
		sizedChunk(TrackID, 12, 0, 0x90, 0x3c, 0x40, 0x10, 0x80),
	)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrNotEnoughBytes) {
		t.Fatalf("expected not enough bytes error, got %v", err)
	}

	s := DefaultReadSettings()
	s.NotEnoughBytes = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	checkEvents(t, f.Tracks()[0].Events, []Event{{0, NoteOn(0, 0x3c, 0x40)}})
}

func TestNoHeaderChunk(t *testing.T) {
	data := chunkBytes(TrackID, 0, 0xff, 0x2f, 0)
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrNoHeaderChunk) {
		t.Fatalf("expected no header chunk error, got %v", err)
	}
	if _, err := Read(bytes.NewReader(nil), nil); !errors.Is(err, ErrNoHeaderChunk) {
		t.Fatalf("expected no header chunk error for empty input, got %v", err)
	}

	s := DefaultReadSettings()
	s.NoHeaderChunk = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if f.Format != MultiTrack || f.Division != TicksPerQuarterNote(DefaultTicksPerQuarterNote) {
		t.Fatalf("expected default header fields, got %s %s", f.Format, f.Division)
	}
	if len(f.Tracks()) != 1 {
		t.Fatalf("expected 1 track, got %d", len(f.Tracks()))
	}
}

func TestUnknownFileFormat(t *testing.T) {
	data := join(headerBytes(5, 1, 96), chunkBytes(TrackID, 0, 0xff, 0x2f, 0))
	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrUnknownFileFormat) {
		t.Fatalf("expected unknown file format error, got %v", err)
	}

	s := DefaultReadSettings()
	s.UnknownFileFormat = Ignore
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if f.Format != MultiTrack || f.OriginalFormat != 5 {
		t.Fatalf("expected multi-track with original format 5, got %s %d", f.Format, f.OriginalFormat)
	}
}

func TestInvalidChannelParameter(t *testing.T) {
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID, 0, 0x90, 0x3c, 0xc8, 0, 0xff, 0x2f, 0))

	tests := []struct {
		policy Policy
		want   uint8
	}{
		{SnapToLimits, 0x7f},
		{ReadValid, 0x48},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			s := DefaultReadSettings()
			s.InvalidChannelEventParameterValue = tt.policy
			f, err := Read(bytes.NewReader(data), &s)
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}
			m := f.Tracks()[0].Events[0].Message.(ChannelMessage)
			if m.Data2 != tt.want {
				t.Fatalf("expected velocity %d, got %d", tt.want, m.Data2)
			}
		})
	}

	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrInvalidChannelEventParameterValue) {
		t.Fatalf("expected invalid parameter error, got %v", err)
	}
}

func TestInvalidMetaParameter(t *testing.T) {
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID,
		0, 0xff, 0x59, 2, 9, 0,
		0, 0xff, 0x59, 2, 0xf7, 3,
		0, 0xff, 0x2f, 0))

	if _, err := Read(bytes.NewReader(data), nil); !errors.Is(err, ErrInvalidMetaEventParameterValue) {
		t.Fatalf("expected invalid meta parameter error, got %v", err)
	}

	s := DefaultReadSettings()
	s.InvalidMetaEventParameterValue = SnapToLimits
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	events := f.Tracks()[0].Events
	if ks := events[0].Message.(KeySignature); ks.Key != 7 || ks.Scale != 0 {
		t.Errorf("expected key 7 major, got %v", ks)
	}
	if ks := events[1].Message.(KeySignature); ks.Key != -7 || ks.Scale != 1 {
		t.Errorf("expected key -7 minor, got %v", ks)
	}
}

func TestMalformedMetaLengthIsUnknown(t *testing.T) {
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID,
		0, 0xff, 0x51, 2, 0x07, 0xa1,
		0, 0xff, 0x2f, 0))
	f, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	m, ok := f.Tracks()[0].Events[0].Message.(UnknownMeta)
	if !ok || m.Type != MetaSetTempo || !bytes.Equal(m.Data, []byte{0x07, 0xa1}) {
		t.Fatalf("expected unknown meta with raw bytes, got %v", f.Tracks()[0].Events[0].Message)
	}
}

func TestFatalStatusBytes(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    error
	}{
		{"running status without status", []byte{0, 0x3c, 0x40, 0, 0xff, 0x2f, 0}, ErrUnexpectedRunningStatus},
		{"system common", []byte{0, 0xf1, 0x00, 0, 0xff, 0x2f, 0}, ErrUnknownChannelEvent},
		{"real time", []byte{0, 0xf8, 0, 0xff, 0x2f, 0}, ErrUnknownChannelEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ReadSettings{
				InvalidChunkSize: Ignore,
				MissedEndOfTrack: Ignore,
				NotEnoughBytes:   Ignore,
				UnknownChunkID:   ReadAsUnknown,
			}
			data := join(headerBytes(0, 1, 96), chunkBytes(TrackID, tt.payload...))
			if _, err := Read(bytes.NewReader(data), &s); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunningStatusSurvivesMeta(t *testing.T) {
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID,
		0, 0x90, 0x3c, 0x40,
		0, 0xff, 0x01, 2, 'h', 'i',
		0x10, 0x3c, 0,
		0, 0xff, 0x2f, 0))
	f, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	checkEvents(t, f.Tracks()[0].Events, []Event{
		{0, NoteOn(0, 0x3c, 0x40)},
		{0, NewText(MetaText, "hi")},
		{0x10, NoteOn(0, 0x3c, 0)},
		{0, EndOfTrack{}},
	})
}

func TestSilentNoteOnPolicy(t *testing.T) {
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID, 0, 0x90, 0x3c, 0, 0, 0xff, 0x2f, 0))
	s := DefaultReadSettings()
	s.SilentNoteOn = AsNoteOff
	f, err := Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if m := f.Tracks()[0].Events[0].Message; !Equal(m, NoteOff(0, 0x3c, 0)) {
		t.Fatalf("expected note off, got %v", m)
	}
}

func TestSysExContinuation(t *testing.T) {
	payload := []byte{
		0, 0xf0, 3, 0x43, 0x12, 0x00,
		0x10, 0xf7, 2, 0x43, 0xf7,
		0, 0xf7, 1, 0xf8,
		0, 0xff, 0x2f, 0,
	}
	data := join(headerBytes(0, 1, 96), chunkBytes(TrackID, payload...))
	f, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	checkEvents(t, f.Tracks()[0].Events, []Event{
		{0, SysEx{Data: []byte{0x43, 0x12, 0x00}}},
		{0x10, EscapeSysEx{Data: []byte{0x43, 0xf7}, Continuation: true}},
		{0, EscapeSysEx{Data: []byte{0xf8}}},
		{0, EndOfTrack{}},
	})

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("expected the packet split to be kept, got % X", buf.Bytes())
	}
}

func TestUnknownChunks(t *testing.T) {
	track := chunkBytes(TrackID, 0, 0xff, 0x2f, 0)
	data := join(headerBytes(1, 1, 96), chunkBytes("XFIH", 1, 2, 3), track)

	f, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	unknown := f.UnknownChunks()
	if len(unknown) != 1 || unknown[0].ChunkID != "XFIH" || !bytes.Equal(unknown[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("expected the XFIH chunk to be kept, got %v", unknown)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatalf("expected identical output, got % X", buf.Bytes())
	}

	buf.Reset()
	if _, err := Write(&buf, f, &WriteSettings{Compression: DeleteUnknownChunks}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if want := join(headerBytes(1, 1, 96), track); !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("expected the chunk to be dropped, got % X", buf.Bytes())
	}
	if len(f.UnknownChunks()) != 1 {
		t.Fatal("write must not modify the file")
	}

	s := DefaultReadSettings()
	s.UnknownChunkID = Skip
	f, err = Read(bytes.NewReader(data), &s)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(f.UnknownChunks()) != 0 || len(f.Tracks()) != 1 {
		t.Fatalf("expected the chunk to be skipped, got %v", f.Chunks)
	}

	s.UnknownChunkID = Abort
	if _, err := Read(bytes.NewReader(data), &s); !errors.Is(err, ErrUnknownChunkID) {
		t.Fatalf("expected unknown chunk error, got %v", err)
	}
}

func TestDeleteDefaultMetaEvents(t *testing.T) {
	track := &TrackChunk{Events: []Event{
		{0, DefaultSetTempo},
		{10, NewSetTempo(600000)},
		{0, DefaultKeySignature},
		{5, NewKeySignature(2, 0)},
		{0, DefaultTimeSignature},
		{0, NewTimeSignature(3, 2)},
		{0, UnknownMeta{Type: 0x60, Data: []byte{1}}},
		{0, EndOfTrack{}},
	}}
	f := NewFile(TicksPerQuarterNote(480), track)

	var buf bytes.Buffer
	policy := DeleteDefaultSetTempo | DeleteDefaultKeySignature | DeleteDefaultTimeSignature | DeleteUnknownMetaEvents
	if _, err := Write(&buf, f, &WriteSettings{Compression: policy}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := Read(&buf, nil)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	timed := got.Tracks()[0].TimedEvents()
	want := []TimedEvent{
		{10, NewSetTempo(600000)},
		{15, NewKeySignature(2, 0)},
		{15, NewTimeSignature(3, 2)},
		{15, EndOfTrack{}},
	}
	if len(timed) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), timed)
	}
	for i := range want {
		if timed[i].Time != want[i].Time || !Equal(timed[i].Message, want[i].Message) {
			t.Errorf("event %d: expected %v, got %v", i, want[i], timed[i])
		}
	}
	if len(track.Events) != 8 {
		t.Fatal("write must not modify the track")
	}
}

func TestEndOfTrackNormalised(t *testing.T) {
	events := []Event{
		{0, NoteOn(0, 60, 100)},
		{5, EndOfTrack{}},
		{5, NoteOff(0, 60, 0)},
	}
	got := trackPayload(t, events, NoCompression)
	want := []byte{0, 0x90, 60, 100, 10, 0x80, 60, 0, 0, 0xff, 0x2f, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected % X, got % X", want, got)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	messages := []Message{
		NoteOn(1, 60, 100),
		NoteOff(15, 60, 64),
		PolyPressure(2, 61, 10),
		ControlChange(3, 7, 127),
		ControlChange(3, 123, 0),
		ProgramChange(4, 42),
		ChannelPressure(5, 99),
		PitchBend(6, 0x2000),
		SysEx{Data: []byte{0x7e, 0x7f, 0x09, 0x01, 0xf7}},
		EscapeSysEx{Data: []byte{0xf8}},
		SequenceNumber{Number: 7},
		NewText(MetaLyric, "la"),
		ChannelPrefix{Channel: 9},
		PortPrefix{Port: 1},
		EndOfTrack{},
		NewSetTempo(428571),
		SMPTEOffset{Rate: SMPTE25, Hours: 1, Minutes: 2, Seconds: 3, Frames: 24, SubFrames: 5},
		NewTimeSignature(6, 3),
		NewKeySignature(-3, 1),
		SequencerSpecific{Data: []byte{0, 0, 0x41}},
		UnknownMeta{Type: 0x60, Data: []byte{1, 2}},
	}
	for _, m := range messages {
		b, err := EncodeMessage(m)
		if err != nil {
			t.Fatalf("encode %v: %v", m, err)
		}
		got, err := DecodeMessage(b, nil)
		if err != nil {
			t.Fatalf("decode %v: %v", m, err)
		}
		if !Equal(got, m) {
			t.Errorf("expected %v, got %v", m, got)
		}
	}
	if k := ControlChange(0, 120, 0).Kind(); k != KindChannelMode {
		t.Errorf("expected channel mode, got %s", k)
	}
}

func TestVarLen(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xc0, 0x00}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1fffff, []byte{0xff, 0xff, 0x7f}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{MaxVarLen, []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tt := range tests {
		got, err := AppendVarLen(nil, tt.v)
		if err != nil {
			t.Fatalf("encode %#x: %v", tt.v, err)
		}
		if !bytes.Equal(got, tt.want) || VarLenSize(tt.v) != len(tt.want) {
			t.Errorf("%#x: expected % X, got % X", tt.v, tt.want, got)
		}
		v, err := newReader(context.Background(), bytes.NewReader(got)).readVarLen()
		if err != nil || v != tt.v {
			t.Errorf("decode % X: expected %#x, got %#x (%v)", got, tt.v, v, err)
		}
	}

	if _, err := AppendVarLen(nil, MaxVarLen+1); !errors.Is(err, ErrVarLenOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
	r := newReader(context.Background(), bytes.NewReader([]byte{0x81, 0x80, 0x80, 0x80, 0x00}))
	if _, err := r.readVarLen(); !errors.Is(err, ErrVarLenOverflow) {
		t.Errorf("expected overflow for a 5-byte quantity, got %v", err)
	}
}

func TestSMPTEDivision(t *testing.T) {
	d := SMPTEDivision{FramesPerSecond: 25, TicksPerFrame: 40}
	v, err := d.encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if v != 0xe728 {
		t.Fatalf("expected 0xE728, got %#x", v)
	}
	if got := decodeDivision(v); got != d {
		t.Fatalf("expected %v, got %v", d, got)
	}
	if _, err := TicksPerQuarterNote(0x8000).encode(); !errors.Is(err, ErrInvalidDivision) {
		t.Fatalf("expected invalid division, got %v", err)
	}
}

func TestWriteRejectsBadFiles(t *testing.T) {
	track := &TrackChunk{}
	f := NewFile(TicksPerQuarterNote(96), track, track)
	f.Format = SingleTrack
	if _, err := f.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrTooManyTracks) {
		t.Errorf("expected too many tracks, got %v", err)
	}

	f = NewFile(TicksPerQuarterNote(96), &TrackChunk{Events: []Event{{MaxVarLen + 1, NoteOn(0, 1, 1)}}})
	if _, err := f.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrVarLenOverflow) {
		t.Errorf("expected delta overflow, got %v", err)
	}

	f = NewFile(TicksPerQuarterNote(96))
	f.Chunks = append(f.Chunks, &UnknownChunk{ChunkID: "TOOLONG"})
	if _, err := f.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrInvalidChunkID) {
		t.Errorf("expected invalid chunk id, got %v", err)
	}

	for _, m := range []Message{
		NewSetTempo(0x1000000),
		ChannelMessage{Type: NoteOnType, Data1: 0x80, Data2: 1},
		ChannelMessage{Type: ControlChangeType, Data1: 7, Data2: 0xFF},
		ChannelMessage{Type: ProgramChangeType, Channel: 16},
		NewKeySignature(8, 0),
		NewTimeSignature(4, MaxDenominatorPower+1),
		SMPTEOffset{Rate: SMPTE25, Hours: 24},
	} {
		f = NewFile(TicksPerQuarterNote(96), &TrackChunk{Events: []Event{{0, m}}})
		if _, err := f.WriteTo(&bytes.Buffer{}); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("%v: expected invalid message, got %v", m, err)
		}
		if _, err := EncodeMessage(m); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("%v: expected EncodeMessage to fail, got %v", m, err)
		}
	}

	// one-byte types ignore Data2
	if _, err := EncodeMessage(ChannelMessage{Type: ProgramChangeType, Data1: 5, Data2: 0xFF}); err != nil {
		t.Errorf("expected program change to encode, got %v", err)
	}
}

func TestReadContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadContext(ctx, bytes.NewReader(exampleFile), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestNewTrackChunk(t *testing.T) {
	track, err := NewTrackChunk([]TimedEvent{
		{20, NoteOff(0, 60, 0)},
		{0, NoteOn(0, 60, 100)},
		{30, EndOfTrack{}},
		{20, NoteOn(0, 62, 100)},
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	checkEvents(t, track.Events, []Event{
		{0, NoteOn(0, 60, 100)},
		{20, NoteOff(0, 60, 0)},
		{0, NoteOn(0, 62, 100)},
		{10, EndOfTrack{}},
	})
	if track.EndTime() != 30 {
		t.Fatalf("expected end time 30, got %d", track.EndTime())
	}

	if _, err := NewTrackChunk([]TimedEvent{{-1, NoteOn(0, 1, 1)}}); err == nil {
		t.Fatal("expected an error for a negative time")
	}
}
