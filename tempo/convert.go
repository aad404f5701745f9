package tempo

import "github.com/pkg/errors"

// LengthTicks returns the number of ticks span covers when it starts at the
// absolute tick at. Only metric and bar/beat spans depend on the position.
func (m *Map) LengthTicks(s Span, at int64) (int64, error) {
	if at < 0 {
		return 0, errors.Wrapf(ErrNegativeSpan, "position %d", at)
	}
	if err := validate(s); err != nil {
		return 0, err
	}

	switch v := s.(type) {
	case Ticks:
		return int64(v), nil
	case Metric:
		end := roundHalfUp(m.tickAt(m.microsAt(at) + float64(v.Microseconds)))
		return end - at, nil
	}

	if m.tpqn == 0 {
		return 0, errors.Wrapf(ErrTimeCode, "%s", s)
	}
	switch v := s.(type) {
	case Musical:
		return roundHalfUp(float64(v.Numerator) * float64(4*m.tpqn) / float64(v.Denominator)), nil
	case BarBeatTicks:
		target, offset := m.shiftBars(at, v.Bars)
		beat := m.barSegmentAt(target).beat
		return target + offset + v.Beats*beat + v.Ticks - at, nil
	case BarBeatFraction:
		target, offset := m.shiftBars(at, v.Bars)
		beat := m.barSegmentAt(target).beat
		return target + offset + roundHalfUp(v.Beats*float64(beat)) - at, nil
	}
	return 0, errors.Wrapf(ErrInvalidSpan, "%T", s)
}

// shiftBars moves n bars forward from the bar containing at. It returns the
// start of the target bar and at's offset into its own bar.
func (m *Map) shiftBars(at, n int64) (target, offset int64) {
	bar, start := m.barAt(at)
	return m.barStart(bar + n), at - start
}

// ToTicks converts s, taken from tick 0, to ticks.
func (m *Map) ToTicks(s Span) (Ticks, error) {
	t, err := m.LengthTicks(s, 0)
	return Ticks(t), err
}

func (m *Map) ToMetric(s Span) (Metric, error) {
	if v, ok := s.(Metric); ok {
		return v, validate(v)
	}
	t, err := m.ToTicks(s)
	if err != nil {
		return Metric{}, err
	}
	return Metric{Microseconds: m.MicrosecondsAt(int64(t))}, nil
}

// ToMusical expresses s as a fraction of a whole note in lowest terms.
func (m *Map) ToMusical(s Span) (Musical, error) {
	if m.tpqn == 0 {
		return Musical{}, errors.Wrapf(ErrTimeCode, "%s", s)
	}
	if v, ok := s.(Musical); ok {
		return v.Reduce(), validate(v)
	}
	t, err := m.ToTicks(s)
	if err != nil {
		return Musical{}, err
	}
	return Musical{Numerator: int64(t), Denominator: 4 * m.tpqn}.Reduce(), nil
}

func (m *Map) ToBarBeatTicks(s Span) (BarBeatTicks, error) {
	if m.tpqn == 0 {
		return BarBeatTicks{}, errors.Wrapf(ErrTimeCode, "%s", s)
	}
	t, err := m.ToTicks(s)
	if err != nil {
		return BarBeatTicks{}, err
	}
	bar, start := m.barAt(int64(t))
	beat := m.barSegmentAt(start).beat
	rem := int64(t) - start
	return BarBeatTicks{Bars: bar, Beats: rem / beat, Ticks: rem % beat}, nil
}

func (m *Map) ToBarBeatFraction(s Span) (BarBeatFraction, error) {
	if m.tpqn == 0 {
		return BarBeatFraction{}, errors.Wrapf(ErrTimeCode, "%s", s)
	}
	t, err := m.ToTicks(s)
	if err != nil {
		return BarBeatFraction{}, err
	}
	bar, start := m.barAt(int64(t))
	beat := m.barSegmentAt(start).beat
	return BarBeatFraction{Bars: bar, Beats: float64(int64(t)-start) / float64(beat)}, nil
}

// Convert converts s to the representation named by kind.
func (m *Map) Convert(s Span, kind SpanKind) (Span, error) {
	switch kind {
	case KindTicks:
		return m.ToTicks(s)
	case KindMetric:
		return m.ToMetric(s)
	case KindMusical:
		return m.ToMusical(s)
	case KindBarBeatTicks:
		return m.ToBarBeatTicks(s)
	case KindBarBeatFraction:
		return m.ToBarBeatFraction(s)
	}
	return nil, errors.Wrapf(ErrInvalidSpan, "unknown kind %s", kind)
}
