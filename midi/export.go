package midi

import (
	"io"

	"github.com/pkg/errors"
	gosmf "gitlab.com/gomidi/midi/v2/smf"

	"go-smf/debug"
	"go-smf/smf"
)

// ToSMF exports f into gomidi's file model, e.g. to hand it to a gomidi
// player. Unknown chunks and packets gomidi cannot hold (escaped or
// unterminated SysEx) are dropped; their delta-times carry over.
func ToSMF(f *smf.File) (*gosmf.SMF, error) {
	out := gosmf.New()
	switch d := f.Division.(type) {
	case smf.TicksPerQuarterNote:
		out.TimeFormat = gosmf.MetricTicks(uint16(d))
	case smf.SMPTEDivision:
		tf, err := smpteTimeFormat(d)
		if err != nil {
			return nil, err
		}
		out.TimeFormat = tf
	default:
		return nil, errors.Wrapf(smf.ErrInvalidDivision, "%v", f.Division)
	}

	for i, t := range f.Tracks() {
		track, err := exportTrack(t)
		if err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		if err := out.Add(track); err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
	}
	return out, nil
}

// Export writes f to w through gomidi's encoder.
func Export(w io.Writer, f *smf.File) (int64, error) {
	out, err := ToSMF(f)
	if err != nil {
		return 0, err
	}
	return out.WriteTo(w)
}

func smpteTimeFormat(d smf.SMPTEDivision) (gosmf.TimeFormat, error) {
	switch d.FramesPerSecond {
	case 24:
		return gosmf.SMPTE24(d.TicksPerFrame), nil
	case 25:
		return gosmf.SMPTE25(d.TicksPerFrame), nil
	case 29:
		return gosmf.SMPTE30DropFrame(d.TicksPerFrame), nil
	case 30:
		return gosmf.SMPTE30(d.TicksPerFrame), nil
	}
	return nil, errors.Wrapf(smf.ErrInvalidDivision, "%s", d)
}

func exportTrack(t *smf.TrackChunk) (gosmf.Track, error) {
	var (
		track gosmf.Track
		delta uint32
	)
	for _, ev := range t.Events {
		delta += ev.Delta
		switch v := ev.Message.(type) {
		case smf.EndOfTrack:
			track.Close(delta)
			return track, nil
		case smf.EscapeSysEx:
			debug.Log("midi", "export: dropped %s", v)
			continue
		case smf.SysEx:
			if !v.Complete() {
				debug.Log("midi", "export: dropped unterminated %s", v)
				continue
			}
			msg := append([]byte{0xF0}, v.Data...)
			track.Add(delta, msg)
		default:
			msg, err := smf.EncodeMessage(v)
			if err != nil {
				return nil, err
			}
			track.Add(delta, msg)
		}
		delta = 0
	}
	track.Close(delta)
	return track, nil
}
