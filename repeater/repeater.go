// Package repeater builds sequences made of several time-shifted copies of
// a source sequence.
package repeater

import (
	"fmt"

	"github.com/pkg/errors"

	"go-smf/debug"
	"go-smf/smf"
	"go-smf/tempo"
)

var (
	ErrInvalidRepeats = errors.New("repeater: repeat count must be positive")
	ErrMissingShift   = errors.New("repeater: fixed-value shift without a shift span")
	ErrNegativeShift  = errors.New("repeater: negative shift")
	ErrNoTempoMap     = errors.New("repeater: tempo map required")
)

// ShiftPolicy selects how far each part is moved from the previous one.
type ShiftPolicy int

const (
	// None stacks every part at the original times.
	None ShiftPolicy = iota
	// ShiftByFixedValue shifts by Settings.Shift.
	ShiftByFixedValue
	// ShiftByMaxTime shifts by the time of the latest source event.
	ShiftByMaxTime
)

var shiftPolicyNames = []string{
	None:              "none",
	ShiftByFixedValue: "fixed",
	ShiftByMaxTime:    "max",
}

func (p ShiftPolicy) String() string {
	if p >= 0 && int(p) < len(shiftPolicyNames) {
		return shiftPolicyNames[p]
	}
	return fmt.Sprintf("ShiftPolicy(%d)", int(p))
}

func (p ShiftPolicy) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(shiftPolicyNames) {
		return nil, errors.Errorf("repeater: unknown shift policy %d", int(p))
	}
	return []byte(shiftPolicyNames[p]), nil
}

func (p *ShiftPolicy) UnmarshalText(text []byte) error {
	for i, name := range shiftPolicyNames {
		if name == string(text) {
			*p = ShiftPolicy(i)
			return nil
		}
	}
	return errors.Errorf("repeater: unknown shift policy %q", text)
}

// Settings configures a repetition.
type Settings struct {
	ShiftPolicy ShiftPolicy
	// Shift is used by ShiftByFixedValue.
	Shift tempo.Span
	// ShiftStep, when set, rounds the shift up to a multiple of itself.
	ShiftStep tempo.Span
	// SaveTempoMap re-establishes the starting tempo and time signature at
	// the start of every part after the first.
	SaveTempoMap bool
}

func DefaultSettings() Settings {
	return Settings{ShiftPolicy: ShiftByMaxTime, SaveTempoMap: true}
}

func prepare(n int, m *tempo.Map, s *Settings) (Settings, error) {
	settings := DefaultSettings()
	if s != nil {
		settings = *s
	}
	if n <= 0 {
		return settings, errors.Wrapf(ErrInvalidRepeats, "%d", n)
	}
	if m == nil {
		return settings, ErrNoTempoMap
	}
	if settings.ShiftPolicy == ShiftByFixedValue && settings.Shift == nil {
		return settings, ErrMissingShift
	}
	return settings, nil
}

// Repeat returns n copies of events, part k shifted by k times the shift.
// m converts the shift spans to ticks. A nil settings value means
// DefaultSettings. End-Of-Track events are dropped and take no part in the
// shift, as in RepeatTracks.
func Repeat(events []smf.TimedEvent, n int, m *tempo.Map, s *Settings) ([]smf.TimedEvent, error) {
	settings, err := prepare(n, m, s)
	if err != nil {
		return nil, err
	}
	events = withoutEndOfTrack(events)
	shift, err := calculateShift(maxTime(events), m, settings)
	if err != nil {
		return nil, err
	}
	return repeat(events, n, shift, settings), nil
}

// RepeatTrack repeats the events of one track. The End-Of-Track event is
// rebuilt after the last repeated event.
func RepeatTrack(t *smf.TrackChunk, n int, m *tempo.Map, s *Settings) (*smf.TrackChunk, error) {
	tracks, err := RepeatTracks([]*smf.TrackChunk{t}, n, m, s)
	if err != nil {
		return nil, err
	}
	return tracks[0], nil
}

// RepeatTracks repeats every track by the same shift, computed from the
// latest event over all tracks.
func RepeatTracks(tracks []*smf.TrackChunk, n int, m *tempo.Map, s *Settings) ([]*smf.TrackChunk, error) {
	settings, err := prepare(n, m, s)
	if err != nil {
		return nil, err
	}

	sources := make([][]smf.TimedEvent, len(tracks))
	var latest int64
	for i, t := range tracks {
		sources[i] = withoutEndOfTrack(t.TimedEvents())
		latest = max(latest, maxTime(sources[i]))
	}
	shift, err := calculateShift(latest, m, settings)
	if err != nil {
		return nil, err
	}

	out := make([]*smf.TrackChunk, len(tracks))
	for i, events := range sources {
		if out[i], err = smf.NewTrackChunk(repeat(events, n, shift, settings)); err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
	}
	return out, nil
}

// RepeatFile repeats every track of f using its own tempo map. Format,
// division and unknown chunks are kept.
func RepeatFile(f *smf.File, n int, s *Settings) (*smf.File, error) {
	m, err := tempo.Build(f)
	if err != nil {
		return nil, err
	}
	tracks, err := RepeatTracks(f.Tracks(), n, m, s)
	if err != nil {
		return nil, err
	}

	out := &smf.File{Format: f.Format, OriginalFormat: f.OriginalFormat, Division: f.Division}
	next := 0
	for _, c := range f.Chunks {
		switch v := c.(type) {
		case *smf.TrackChunk:
			out.Chunks = append(out.Chunks, tracks[next])
			next++
		case *smf.UnknownChunk:
			out.Chunks = append(out.Chunks, &smf.UnknownChunk{ChunkID: v.ChunkID, Data: append([]byte(nil), v.Data...)})
		}
	}
	return out, nil
}

func calculateShift(latest int64, m *tempo.Map, s Settings) (int64, error) {
	var shift tempo.Span
	switch s.ShiftPolicy {
	case None:
		return 0, nil
	case ShiftByFixedValue:
		shift = s.Shift
	case ShiftByMaxTime:
		shift = tempo.Ticks(latest)
	default:
		return 0, errors.Errorf("repeater: unknown shift policy %d", int(s.ShiftPolicy))
	}

	if s.ShiftStep != nil {
		var err error
		if shift, err = roundShift(shift, s.ShiftStep, m); err != nil {
			return 0, err
		}
	}
	ticks, err := m.ToTicks(shift)
	if errors.Is(err, tempo.ErrNegativeSpan) {
		return 0, errors.Wrapf(ErrNegativeShift, "%s", shift)
	}
	if err != nil {
		return 0, err
	}
	debug.Log("repeat", "shift %s = %d ticks", shift, ticks)
	return int64(ticks), nil
}

// roundShift rounds shift up to the next multiple of step. A metric step is
// measured in microseconds, any other step in ticks. A shift that is already
// a multiple is returned unchanged.
func roundShift(shift, step tempo.Span, m *tempo.Map) (tempo.Span, error) {
	if metric, ok := step.(tempo.Metric); ok {
		if metric.Microseconds == 0 {
			return shift, nil
		}
		us, err := m.ToMetric(shift)
		if err != nil {
			return nil, wrapNegative(err, shift)
		}
		if us.Microseconds%metric.Microseconds == 0 {
			return shift, nil
		}
		q := us.Microseconds / metric.Microseconds
		return tempo.Metric{Microseconds: (q + 1) * metric.Microseconds}, nil
	}

	stepTicks, err := m.ToTicks(step)
	if err != nil {
		return nil, wrapNegative(err, step)
	}
	if stepTicks == 0 {
		return shift, nil
	}
	ticks, err := m.ToTicks(shift)
	if err != nil {
		return nil, wrapNegative(err, shift)
	}
	if ticks%stepTicks == 0 {
		return shift, nil
	}
	return (ticks/stepTicks + 1) * stepTicks, nil
}

func wrapNegative(err error, s tempo.Span) error {
	if errors.Is(err, tempo.ErrNegativeSpan) {
		return errors.Wrapf(ErrNegativeShift, "%s", s)
	}
	return err
}

func repeat(events []smf.TimedEvent, n int, shift int64, s Settings) []smf.TimedEvent {
	var anchors []smf.Message
	if s.SaveTempoMap {
		anchors = tempoAnchors(events)
	}

	out := make([]smf.TimedEvent, 0, n*(len(events)+len(anchors)))
	for part := 0; part < n; part++ {
		offset := int64(part) * shift
		if part > 0 {
			for _, a := range anchors {
				out = append(out, smf.TimedEvent{Time: offset, Message: a})
			}
		}
		for _, ev := range events {
			out = append(out, smf.TimedEvent{Time: ev.Time + offset, Message: smf.CloneMessage(ev.Message)})
		}
	}
	return out
}

// tempoAnchors returns a default SetTempo and TimeSignature for each kind
// whose earliest event in the sequence comes after tick 0. Inserted at the
// start of a part, they restore the values the source starts with.
func tempoAnchors(events []smf.TimedEvent) []smf.Message {
	firstTempo, firstSignature := int64(-1), int64(-1)
	for _, ev := range events {
		switch ev.Message.(type) {
		case smf.SetTempo:
			if firstTempo < 0 || ev.Time < firstTempo {
				firstTempo = ev.Time
			}
		case smf.TimeSignature:
			if firstSignature < 0 || ev.Time < firstSignature {
				firstSignature = ev.Time
			}
		}
	}

	var anchors []smf.Message
	if firstTempo > 0 {
		anchors = append(anchors, smf.DefaultSetTempo)
	}
	if firstSignature > 0 {
		anchors = append(anchors, smf.DefaultTimeSignature)
	}
	return anchors
}

func maxTime(events []smf.TimedEvent) int64 {
	var latest int64
	for _, ev := range events {
		latest = max(latest, ev.Time)
	}
	return latest
}

func withoutEndOfTrack(events []smf.TimedEvent) []smf.TimedEvent {
	out := events[:0:0]
	for _, ev := range events {
		if _, ok := ev.Message.(smf.EndOfTrack); !ok {
			out = append(out, ev)
		}
	}
	return out
}
