package tempo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
)

// SpanKind names a time span representation.
type SpanKind int

const (
	KindTicks SpanKind = iota
	KindMetric
	KindMusical
	KindBarBeatTicks
	KindBarBeatFraction
)

var kindNames = []string{
	KindTicks:           "ticks",
	KindMetric:          "metric",
	KindMusical:         "musical",
	KindBarBeatTicks:    "bar-beat-ticks",
	KindBarBeatFraction: "bar-beat-fraction",
}

func (k SpanKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("SpanKind(%d)", int(k))
}

func (k SpanKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, errors.Wrapf(ErrInvalidSpan, "kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *SpanKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = SpanKind(i)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidSpan, "kind %q", text)
}

// Span is a length of time in one of the representations below. Every
// conversion goes through ticks on a Map.
type Span interface {
	Kind() SpanKind
	String() string
	span()
}

// Ticks is a length in the file's native ticks.
type Ticks int64

func (Ticks) Kind() SpanKind   { return KindTicks }
func (Ticks) span()            {}
func (t Ticks) String() string { return strconv.FormatInt(int64(t), 10) }

// Metric is a length in microseconds.
type Metric struct {
	Microseconds int64
}

func (Metric) Kind() SpanKind { return KindMetric }
func (Metric) span()          {}
func (m Metric) String() string {
	return (time.Duration(m.Microseconds) * time.Microsecond).String()
}

// Musical is a fraction of a whole note: 1/4 is a quarter note.
type Musical struct {
	Numerator   int64
	Denominator int64
}

func (Musical) Kind() SpanKind   { return KindMusical }
func (Musical) span()            {}
func (m Musical) String() string { return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator) }

// Reduce returns the fraction in lowest terms.
func (m Musical) Reduce() Musical {
	g := gcd(m.Numerator, m.Denominator)
	if g <= 1 {
		return m
	}
	return Musical{Numerator: m.Numerator / g, Denominator: m.Denominator / g}
}

// BarBeatTicks counts whole bars, then beats of the signature in effect,
// then ticks. Bars and beats are zero-based.
type BarBeatTicks struct {
	Bars  int64
	Beats int64
	Ticks int64
}

func (BarBeatTicks) Kind() SpanKind { return KindBarBeatTicks }
func (BarBeatTicks) span()          {}
func (b BarBeatTicks) String() string {
	return fmt.Sprintf("%d.%d.%d", b.Bars, b.Beats, b.Ticks)
}

// BarBeatFraction is BarBeatTicks with the beat remainder as a fraction.
type BarBeatFraction struct {
	Bars  int64
	Beats float64
}

func (BarBeatFraction) Kind() SpanKind { return KindBarBeatFraction }
func (BarBeatFraction) span()          {}
func (b BarBeatFraction) String() string {
	return fmt.Sprintf("%d_%s", b.Bars, strconv.FormatFloat(b.Beats, 'f', -1, 64))
}

// ParseSpan reads the String form of any span: "480" ticks, "1.5s" or
// "1500ms" metric, "1/4" musical, "2.1.0" bar/beat/ticks and "2_1.5"
// bar/beat fraction.
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(s)
	var (
		span Span
		err  error
	)
	switch {
	case s == "":
		return nil, errors.Wrap(ErrInvalidSpan, "empty")
	case strings.Contains(s, "/"):
		span, err = parseMusical(s)
	case strings.Contains(s, "_"):
		span, err = parseBarBeatFraction(s)
	case strings.Count(s, ".") == 2:
		span, err = parseBarBeatTicks(s)
	case strings.IndexFunc(s, unicode.IsLetter) >= 0:
		var d time.Duration
		d, err = time.ParseDuration(s)
		span = Metric{Microseconds: d.Microseconds()}
	default:
		var n int64
		n, err = strconv.ParseInt(s, 10, 64)
		span = Ticks(n)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSpan, "%q: %v", s, err)
	}
	if err := validate(span); err != nil {
		return nil, err
	}
	return span, nil
}

func parseMusical(s string) (Span, error) {
	num, den, _ := strings.Cut(s, "/")
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return nil, err
	}
	d, err := strconv.ParseInt(den, 10, 64)
	if err != nil {
		return nil, err
	}
	return Musical{Numerator: n, Denominator: d}, nil
}

func parseBarBeatTicks(s string) (Span, error) {
	parts := strings.Split(s, ".")
	var v [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		v[i] = n
	}
	return BarBeatTicks{Bars: v[0], Beats: v[1], Ticks: v[2]}, nil
}

func parseBarBeatFraction(s string) (Span, error) {
	bars, beats, _ := strings.Cut(s, "_")
	b, err := strconv.ParseInt(bars, 10, 64)
	if err != nil {
		return nil, err
	}
	f, err := strconv.ParseFloat(beats, 64)
	if err != nil {
		return nil, err
	}
	return BarBeatFraction{Bars: b, Beats: f}, nil
}

func validate(s Span) error {
	negative := false
	switch v := s.(type) {
	case Ticks:
		negative = v < 0
	case Metric:
		negative = v.Microseconds < 0
	case Musical:
		if v.Denominator <= 0 {
			return errors.Wrapf(ErrInvalidSpan, "denominator %d", v.Denominator)
		}
		negative = v.Numerator < 0
	case BarBeatTicks:
		negative = v.Bars < 0 || v.Beats < 0 || v.Ticks < 0
	case BarBeatFraction:
		negative = v.Bars < 0 || v.Beats < 0
	case nil:
		return errors.Wrap(ErrInvalidSpan, "nil span")
	default:
		return errors.Wrapf(ErrInvalidSpan, "%T", s)
	}
	if negative {
		return errors.Wrapf(ErrNegativeSpan, "%s", s)
	}
	return nil
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
