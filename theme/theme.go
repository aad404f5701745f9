package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"go-smf/smf"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Cursor   rune // ▶ selected event
	Anomaly  rune // ! unknown meta or chunk
	Tempo    rune // ♩ tempo change
	Meter    rune // ⁄ time signature
	Continue rune // … sysex continuation
}

// New returns a theme for palette, the built-in palette if nil.
func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Default()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Cursor:   '▶',
			Anomaly:  '!',
			Tempo:    '♩',
			Meter:    '⁄',
			Continue: '…',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0 // deep purple
	RoleSurface = 0.1 // dark purple
	RoleMuted   = 0.2 // purple-magenta
	RoleFG      = 0.4 // pink-purple (readable)
	RoleAccent  = 0.5 // vivid magenta
	RoleCursor  = 0.6 // rose pink
	RoleActive  = 0.7 // soft red
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

// Event kinds get their own roles so a track reads at a glance.
var kindRoles = map[smf.Kind]float64{
	smf.KindChannelVoice: RoleFG,
	smf.KindChannelMode:  RoleActive,
	smf.KindMeta:         RoleAccent,
	smf.KindSysEx:        RoleSuccess,
	smf.KindEscapeSysEx:  RoleWarning,
}

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// Kind returns the colour for an event kind.
func (t *Theme) Kind(k smf.Kind) lipgloss.Color {
	role, ok := kindRoles[k]
	if !ok {
		role = RoleMuted
	}
	return rgbToLipgloss(t.Palette.Lookup(role))
}

// Marker returns the symbol shown before a message, or a space.
func (t *Theme) Marker(m smf.Message) rune {
	switch v := m.(type) {
	case smf.SetTempo:
		return t.Symbols.Tempo
	case smf.TimeSignature:
		return t.Symbols.Meter
	case smf.UnknownMeta:
		return t.Symbols.Anomaly
	case smf.EscapeSysEx:
		if v.Continuation {
			return t.Symbols.Continue
		}
	}
	return ' '
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
