package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"go-smf/midi"
	"go-smf/repeater"
	"go-smf/smf"
	"go-smf/tempo"
	"go-smf/theme"
)

func runDump(args []string) error {
	var c common
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one file")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	f, err := readFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	m, err := tempo.Build(f)
	if err != nil {
		return err
	}

	th := theme.New(nil)
	if cfg.UI.Palette != "" {
		p, err := theme.LoadGPL(cfg.UI.Palette)
		if err != nil {
			return err
		}
		th = theme.New(p)
	}
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s  %s  %s", fs.Arg(0), f.Format, f.Division)))
	if f.OriginalFormat != uint16(f.Format) {
		fmt.Println(dimStyle.Render(fmt.Sprintf("header format %d read as %s", f.OriginalFormat, f.Format)))
	}

	track := 0
	for _, chunk := range f.Chunks {
		switch v := chunk.(type) {
		case *smf.UnknownChunk:
			fmt.Println(dimStyle.Render(v.String()))
		case *smf.TrackChunk:
			fmt.Println(headerStyle.Render(fmt.Sprintf("MTrk %d  %d events", track, len(v.Events))))
			for _, ev := range v.TimedEvents() {
				label := tempo.Ticks(ev.Time).String()
				if s, err := m.Convert(tempo.Ticks(ev.Time), cfg.UI.TimeFormat); err == nil {
					label = s.String()
				}
				kind := lipgloss.NewStyle().Foreground(th.Kind(ev.Message.Kind()))
				fmt.Printf("  %8d %12s %c %s\n", ev.Time, label, th.Marker(ev.Message), kind.Render(ev.Message.String()))
			}
			track++
		}
	}
	return nil
}

func runTempo(args []string) error {
	var c common
	fs := flag.NewFlagSet("tempo", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one file")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	f, err := readFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	m, err := tempo.Build(f)
	if err != nil {
		return err
	}

	fmt.Println("Tempo:")
	for _, t := range m.Tempos() {
		fmt.Printf("  %8d  %12s  %7.2f bpm\n", t.Time, tempo.Metric{Microseconds: m.MicrosecondsAt(t.Time)}, t.BPM())
	}
	fmt.Println("Time signature:")
	for _, s := range m.Signatures() {
		fmt.Printf("  %8d  %s\n", s.Time, s)
	}
	return nil
}

func runRepeat(args []string) error {
	var (
		c       common
		n       int
		policy  string
		shift   string
		step    string
		noTempo bool
	)
	fs := flag.NewFlagSet("repeat", flag.ContinueOnError)
	c.register(fs)
	fs.IntVar(&n, "n", 2, "number of parts")
	fs.StringVar(&policy, "policy", "", "shift policy: max|fixed|none")
	fs.StringVar(&shift, "shift", "", "fixed shift, e.g. 480, 1/4, 2.0.0, 1500ms")
	fs.StringVar(&step, "step", "", "round the shift up to a multiple of this span")
	fs.BoolVar(&noTempo, "no-tempo", false, "do not restore the starting tempo in every part")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected input and output files")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	rc := cfg.Repeat
	if policy != "" {
		if err := rc.ShiftPolicy.UnmarshalText([]byte(policy)); err != nil {
			return err
		}
	}
	if shift != "" {
		rc.Shift = shift
	}
	if step != "" {
		rc.ShiftStep = step
	}
	if noTempo {
		rc.SaveTempoMap = false
	}
	settings, err := rc.Settings()
	if err != nil {
		return err
	}

	f, err := readFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	out, err := repeater.RepeatFile(f, n, &settings)
	if err != nil {
		return err
	}
	return writeFile(fs.Arg(1), out, cfg.Writing)
}

// compressionFlag collects -p values into a policy set.
type compressionFlag struct {
	set    bool
	policy smf.CompressionPolicy
}

func (f *compressionFlag) String() string {
	return f.policy.String()
}

func (f *compressionFlag) Set(name string) error {
	for _, part := range strings.Split(name, ",") {
		p, err := smf.ParseCompression(strings.TrimSpace(part))
		if err != nil {
			return err
		}
		f.policy |= p
	}
	f.set = true
	return nil
}

func runCompress(args []string) error {
	var (
		c common
		p compressionFlag
	)
	fs := flag.NewFlagSet("compress", flag.ContinueOnError)
	c.register(fs)
	fs.Var(&p, "p", "compression policy (repeatable, comma separated, or all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected input and output files")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	f, err := readFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	ws := cfg.Writing
	if p.set {
		ws.Compression = p.policy
	}
	return writeFile(fs.Arg(1), f, ws)
}

func runPorts(args []string) error {
	names, err := midi.OutPorts(3 * time.Second)
	if err != nil {
		return errors.Wrap(err, "driver may be hung (macOS: sudo killall coreaudiod midiserver)")
	}
	fmt.Println("=== MIDI Output Ports ===")
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func runSend(args []string) error {
	var (
		c     common
		track int
		dry   bool
	)
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	c.register(fs)
	fs.IntVar(&track, "track", -1, "send the live messages of this track instead of the SysEx packets")
	fs.BoolVar(&dry, "dry", false, "with -track, print the messages instead of sending them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected a port name and a file")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	f, err := readFile(fs.Arg(1), cfg)
	if err != nil {
		return err
	}
	var t *smf.TrackChunk
	if track >= 0 {
		tracks := f.Tracks()
		if track >= len(tracks) {
			return errors.Errorf("track %d out of range, file has %d", track, len(tracks))
		}
		t = tracks[track]
	}
	if t != nil && dry {
		for _, m := range midi.Messages(t) {
			fmt.Println(m)
		}
		return nil
	}

	out, err := midi.OpenOut(fs.Arg(0))
	if err != nil {
		return err
	}
	defer out.Close()

	if t != nil {
		sent, err := out.SendTrack(t)
		fmt.Printf("sent %d messages\n", sent)
		return err
	}
	sent, err := out.SendSysEx(f)
	fmt.Printf("sent %d SysEx packets\n", sent)
	return err
}

func runExport(args []string) error {
	var c common
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("expected input and output files")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	f, err := readFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	if _, err := midi.Export(out, f); err != nil {
		out.Close()
		return errors.Wrap(err, "export")
	}
	return out.Close()
}
