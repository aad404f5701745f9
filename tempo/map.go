// Package tempo derives a tempo map from decoded tracks and converts time
// spans between ticks, microseconds and bar/beat positions.
package tempo

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"go-smf/debug"
	"go-smf/smf"
)

var (
	ErrZeroDivision = errors.New("tempo: time division has zero ticks")
	ErrNegativeSpan = errors.New("tempo: negative time span")
	ErrInvalidSpan  = errors.New("tempo: invalid time span")
	// ErrTimeCode is returned for musical and bar/beat conversions on a file
	// with an SMPTE division, which has no quarter note.
	ErrTimeCode = errors.New("tempo: musical time needs a ticks-per-quarter-note division")
)

// Tempo is a tempo breakpoint, effective from Time until the next one.
type Tempo struct {
	Time                       int64
	MicrosecondsPerQuarterNote int64
}

func (t Tempo) BPM() float64 {
	return 60000000 / float64(t.MicrosecondsPerQuarterNote)
}

// Signature is a time signature breakpoint.
type Signature struct {
	Time        int64
	Numerator   int64
	Denominator int64
}

func (s Signature) String() string {
	return fmt.Sprintf("%d/%d", s.Numerator, s.Denominator)
}

// Map is an immutable tempo map. Rebuild it when the source events change.
type Map struct {
	division  smf.TimeDivision
	tpqn      int64   // 0 for SMPTE divisions
	usPerTick float64 // SMPTE divisions only

	tempos []Tempo
	starts []float64 // microseconds at each tempo breakpoint

	signatures []Signature
	bars       []barSegment
}

// barSegment is the bar grid of one signature: bars of length ticks from
// start, numbered from firstBar. A later signature truncates the last bar.
type barSegment struct {
	start    int64
	length   int64
	beat     int64
	firstBar int64
}

// Build derives the tempo map of a decoded file.
func Build(f *smf.File) (*Map, error) {
	tracks := f.Tracks()
	timed := make([][]smf.TimedEvent, len(tracks))
	for i, t := range tracks {
		timed[i] = t.TimedEvents()
	}
	return New(f.Division, timed)
}

// New derives a tempo map from timed tracks. Tempo and time signature events
// of all tracks are merged by time; at equal times the later track, then the
// later event, wins.
func New(division smf.TimeDivision, tracks [][]smf.TimedEvent) (*Map, error) {
	m := &Map{division: division}
	switch d := division.(type) {
	case smf.TicksPerQuarterNote:
		if d == 0 {
			return nil, errors.Wrap(ErrZeroDivision, "0 ticks per quarter note")
		}
		m.tpqn = int64(d)
	case smf.SMPTEDivision:
		if d.TicksPerFrame == 0 || d.FramesPerSecond == 0 {
			return nil, errors.Wrapf(ErrZeroDivision, "%s", d)
		}
		m.usPerTick = 1e6 / (d.FrameRate() * float64(d.TicksPerFrame))
	default:
		return nil, errors.Wrap(ErrZeroDivision, "missing time division")
	}

	var changes []smf.TimedEvent
	for _, track := range tracks {
		for _, ev := range track {
			switch ev.Message.(type) {
			case smf.SetTempo, smf.TimeSignature:
				changes = append(changes, ev)
			}
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].Time < changes[j].Time })

	m.tempos = []Tempo{{Time: 0, MicrosecondsPerQuarterNote: smf.DefaultTempo}}
	m.signatures = []Signature{{Time: 0, Numerator: 4, Denominator: 4}}
	for _, ev := range changes {
		if ev.Time < 0 {
			continue
		}
		switch v := ev.Message.(type) {
		case smf.SetTempo:
			if v.MicrosecondsPerQuarterNote == 0 {
				debug.Log("tempo", "ignoring zero tempo at %d", ev.Time)
				continue
			}
			m.addTempo(Tempo{Time: ev.Time, MicrosecondsPerQuarterNote: int64(v.MicrosecondsPerQuarterNote)})
		case smf.TimeSignature:
			if v.Numerator == 0 {
				debug.Log("tempo", "ignoring time signature with zero numerator at %d", ev.Time)
				continue
			}
			m.addSignature(Signature{Time: ev.Time, Numerator: int64(v.Numerator), Denominator: v.Denominator()})
		}
	}
	m.index()
	return m, nil
}

// addTempo installs t, replacing a breakpoint at the same tick and skipping
// it when the value does not change.
func (m *Map) addTempo(t Tempo) {
	if n := len(m.tempos); m.tempos[n-1].Time == t.Time {
		m.tempos = m.tempos[:n-1]
	}
	if n := len(m.tempos); n > 0 && m.tempos[n-1].MicrosecondsPerQuarterNote == t.MicrosecondsPerQuarterNote {
		return
	}
	m.tempos = append(m.tempos, t)
}

func (m *Map) addSignature(s Signature) {
	if n := len(m.signatures); m.signatures[n-1].Time == s.Time {
		m.signatures = m.signatures[:n-1]
	}
	if n := len(m.signatures); n > 0 {
		last := m.signatures[n-1]
		if last.Numerator == s.Numerator && last.Denominator == s.Denominator {
			return
		}
	}
	m.signatures = append(m.signatures, s)
}

func (m *Map) index() {
	m.starts = make([]float64, len(m.tempos))
	for i := 1; i < len(m.tempos); i++ {
		prev := m.tempos[i-1]
		m.starts[i] = m.starts[i-1] + m.segmentMicros(prev, m.tempos[i].Time-prev.Time)
	}

	if m.tpqn == 0 {
		return
	}
	m.bars = make([]barSegment, len(m.signatures))
	var bar int64
	for i, s := range m.signatures {
		seg := barSegment{
			start:    s.Time,
			length:   max(1, roundHalfUp(float64(4*m.tpqn*s.Numerator)/float64(s.Denominator))),
			beat:     max(1, roundHalfUp(float64(4*m.tpqn)/float64(s.Denominator))),
			firstBar: bar,
		}
		m.bars[i] = seg
		if i+1 < len(m.signatures) {
			span := m.signatures[i+1].Time - s.Time
			bar += (span + seg.length - 1) / seg.length
		}
	}
}

func (m *Map) segmentMicros(t Tempo, ticks int64) float64 {
	if m.tpqn == 0 {
		return float64(ticks) * m.usPerTick
	}
	return float64(ticks) * float64(t.MicrosecondsPerQuarterNote) / float64(m.tpqn)
}

func (m *Map) Division() smf.TimeDivision { return m.division }

// Tempos returns a copy of the tempo breakpoints. The first is at tick 0.
func (m *Map) Tempos() []Tempo {
	return append([]Tempo(nil), m.tempos...)
}

// Signatures returns a copy of the time signature breakpoints.
func (m *Map) Signatures() []Signature {
	return append([]Signature(nil), m.signatures...)
}

func (m *Map) tempoIndex(tick int64) int {
	i := sort.Search(len(m.tempos), func(i int) bool { return m.tempos[i].Time > tick }) - 1
	return max(i, 0)
}

func (m *Map) signatureIndex(tick int64) int {
	i := sort.Search(len(m.signatures), func(i int) bool { return m.signatures[i].Time > tick }) - 1
	return max(i, 0)
}

// TempoAt returns the tempo in effect at tick.
func (m *Map) TempoAt(tick int64) Tempo {
	return m.tempos[m.tempoIndex(tick)]
}

// SignatureAt returns the time signature in effect at tick.
func (m *Map) SignatureAt(tick int64) Signature {
	return m.signatures[m.signatureIndex(tick)]
}

func (m *Map) microsAt(tick int64) float64 {
	if m.tpqn == 0 {
		return float64(tick) * m.usPerTick
	}
	i := m.tempoIndex(tick)
	return m.starts[i] + m.segmentMicros(m.tempos[i], tick-m.tempos[i].Time)
}

func (m *Map) tickAt(us float64) float64 {
	if m.tpqn == 0 {
		return us / m.usPerTick
	}
	i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > us }) - 1
	i = max(i, 0)
	t := m.tempos[i]
	return float64(t.Time) + (us-m.starts[i])*float64(m.tpqn)/float64(t.MicrosecondsPerQuarterNote)
}

// MicrosecondsAt converts an absolute tick to microseconds from the start.
func (m *Map) MicrosecondsAt(tick int64) int64 {
	return roundHalfUp(m.microsAt(tick))
}

// TickAt converts microseconds from the start to the nearest tick.
func (m *Map) TickAt(us int64) int64 {
	return roundHalfUp(m.tickAt(float64(us)))
}

func (m *Map) barSegmentAt(tick int64) barSegment {
	return m.bars[m.signatureIndex(tick)]
}

// barAt returns the zero-based bar containing tick and the tick it starts at.
func (m *Map) barAt(tick int64) (bar, start int64) {
	tick = max(tick, 0)
	seg := m.barSegmentAt(tick)
	n := (tick - seg.start) / seg.length
	return seg.firstBar + n, seg.start + n*seg.length
}

// barStart returns the tick at which a zero-based bar starts.
func (m *Map) barStart(bar int64) int64 {
	i := sort.Search(len(m.bars), func(i int) bool { return m.bars[i].firstBar > bar }) - 1
	seg := m.bars[max(i, 0)]
	return seg.start + (bar-seg.firstBar)*seg.length
}

func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
