package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-smf/config"
	"go-smf/debug"
	"go-smf/smf"
	"go-smf/theme"
	"go-smf/tui"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (default ~/.config/go-smf/config.json)")
		debugLog   = flag.Bool("debug", false, "write a debug log to ~/.config/go-smf/debug.log")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("usage: go-smf [-config f] [-debug] file.mid")
		os.Exit(2)
	}

	if *debugLog {
		if err := debug.Enable(""); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	palette := theme.Default()
	if cfg.UI.Palette != "" {
		if palette, err = theme.LoadGPL(cfg.UI.Palette); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
	th := theme.New(palette)

	path := flag.Arg(0)
	f, err := readFile(path, &cfg.Reading)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	m, err := tui.NewModel(path, f, th, cfg.UI.TimeFormat)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func readFile(path string, s *smf.ReadSettings) (*smf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return smf.Read(f, s)
}
