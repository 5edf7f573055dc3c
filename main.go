// Command synacor executes Synacor bytecode images.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/nf/synacor/host"
	"github.com/nf/synacor/syn"
)

const (
	exitOK       = 0
	exitError    = 1
	exitWatchdog = 3
)

type config struct {
	image   string
	opts    syn.Options
	host    host.Config
	trace   bool
	opcodes bool
}

func main() {
	log.SetPrefix("synacor: ")
	log.SetFlags(0)

	var (
		cyclesFlag  = flag.Uint64("cycles", 0, "stop after `n` instructions (0 means no limit)")
		resyncFlag  = flag.Bool("resync", false, "skip unknown opcodes instead of halting")
		lenientFlag = flag.Bool("lenient", false, "treat literal destination operands as memory addresses")
		disasmFlag  = flag.Bool("disasm", false, "print a disassembly of the image and exit")
		traceFlag   = flag.Bool("trace", false, "log each instruction executed")
		opcodesFlag = flag.Bool("opcodes", false, "log the distinct opcodes executed at exit")
		devFlag     = flag.Bool("dev", false, "enable developer mode (reload the image when it changes)")
		debugFlag   = flag.Bool("debug", false, "enable debugger (implies -dev)")

		cpuProfileFlag = flag.String("cpu_profile", "", "write CPU profile to `file`")
		statsFlag      = flag.String("statsview", "", "serve runtime statistics on `addr`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <image.bin>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [flags] <-dev | -debug> <image.bin>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(exitError)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	cfg := config{
		image: flag.Arg(0),
		opts: syn.Options{
			Resync:         *resyncFlag,
			LiteralTargets: *lenientFlag,
		},
		host: host.Config{
			Dev:   *devFlag || *debugFlag,
			Limit: *cyclesFlag,
		},
		trace:   *traceFlag,
		opcodes: *opcodesFlag,
	}

	if *disasmFlag {
		if err := disasm(os.Stdout, cfg.image); err != nil {
			log.Fatal(err)
		}
		return
	}

	if addr := *statsFlag; addr != "" {
		go func() {
			viewer.SetConfiguration(viewer.WithAddr(addr))
			statsview.New().Start()
		}()
		log.Printf("stats server available at http://%s/debug/statsview", addr)
	}

	if cfg.host.Dev {
		if err := devMode(cfg, *debugFlag); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cpuProfile io.Closer
	if prof := *cpuProfileFlag; prof != "" {
		f, err := os.Create(prof)
		if err != nil {
			log.Fatalf("creating CPU profile file: %v", err)
		}
		pprof.StartCPUProfile(f)
		cpuProfile = f
	}

	code := run(cfg)

	if f := cpuProfile; f != nil {
		pprof.StopCPUProfile()
		f.Close()
	}
	os.Exit(code)
}

func run(cfg config) int {
	m, err := loadMachine(cfg)
	if err != nil {
		log.Print(err)
		return exitError
	}
	r := host.NewRunner(cfg.host, host.NewConsole(os.Stdin, os.Stdout), nil)
	err = r.Run(context.Background(), m)
	if cfg.opcodes {
		log.Printf("opcodes executed: %v", m.Seen)
	}
	return exitCode(m, err)
}

// exitCode logs how the program stopped and returns the process exit code.
func exitCode(m *syn.Machine, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, io.EOF):
		log.Print("input closed")
		return exitOK
	case errors.Is(err, syn.ErrWatchdog):
		log.Print(host.Summary(m, err))
		return exitWatchdog
	}
	log.Print(host.Summary(m, err))
	return exitError
}

// loadMachine reads the image named by cfg and prepares a machine for it.
func loadMachine(cfg config) (*syn.Machine, error) {
	f, err := os.Open(cfg.image)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := syn.LoadImage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.image, err)
	}
	m.Options = cfg.opts
	if cfg.trace {
		m.Tracef = log.Printf
	}
	return m, nil
}

// disasm writes a listing of the words present in the image file.
func disasm(w io.Writer, image string) error {
	b, err := os.ReadFile(image)
	if err != nil {
		return err
	}
	m, err := syn.NewMachine(b)
	if err != nil {
		return fmt.Errorf("%s: %w", image, err)
	}
	return syn.Disassemble(w, m.Mem[:], 0, len(b)/2)
}
