package main

import (
	"flag"
	"fmt"
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-smf/config"
	"go-smf/debug"
	"go-smf/smf"
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"dump", "dump [-config f] [-debug] file.mid       - print chunks and events", runDump},
	{"tempo", "tempo [-config f] file.mid               - print tempo and meter changes", runTempo},
	{"repeat", "repeat -n N [-policy p] [...] in out     - repeat every track N times", runRepeat},
	{"compress", "compress [-p policy]... in out           - rewrite with compression", runCompress},
	{"ports", "ports                                    - list MIDI outputs", runPorts},
	{"send", "send [-track n [-dry]] port file.mid     - send the SysEx packets or one track of a file", runSend},
	{"export", "export [-config f] in out                - rewrite through gomidi's encoder", runExport},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", c.name, err)
				os.Exit(1)
			}
			return
		}
	}
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Println("smftool - Standard MIDI File tools")
	fmt.Println("")
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Println("  " + c.usage)
	}
}

// common holds the flags every file command accepts.
type common struct {
	configPath string
	debug      bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default ~/.config/go-smf/config.json)")
	fs.BoolVar(&c.debug, "debug", false, "log recovered anomalies to stderr")
}

func (c *common) load() (*config.Config, error) {
	if c.debug {
		debug.SetOutput(os.Stderr)
	}
	if c.configPath == "" {
		return config.Load()
	}
	return config.LoadFile(c.configPath)
}

func readFile(path string, cfg *config.Config) (*smf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return smf.Read(f, &cfg.Reading)
}

func writeFile(path string, file *smf.File, s smf.WriteSettings) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := smf.Write(f, file, &s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
