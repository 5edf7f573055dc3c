// Package host connects a Synacor machine to the outside world: the
// terminal console it reads and writes, and the runner that drives it in
// normal, dev and debug modes.
package host

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nf/synacor/syn"
)

// Config holds the runner settings.
type Config struct {
	// Dev keeps the runner alive after the program stops, so that a new
	// image can be swapped in.
	Dev bool

	// Limit is the watchdog cycle ceiling. Zero disables it.
	Limit uint64
}

// StateKind says why a StateFunc is being called.
type StateKind int

const (
	ClearState StateKind = iota // execution resumed
	QuietState                  // periodic refresh while running
	DebugState                  // a debug point was passed
	BreakState                  // stopped at a breakpoint
	PauseState                  // stopped by request or after a step
	HaltState                   // the program stopped
)

// StateFunc receives the machine state for display. It is called on the
// runner's goroutine, so m may be read safely for its duration.
type StateFunc func(m *syn.Machine, k StateKind)

// Runner executes a machine, and in dev mode supports swapping in new
// machines and debugger control.
type Runner struct {
	cfg   Config
	dev   syn.Device
	state StateFunc

	swap     chan *syn.Machine
	swapDone chan bool
	debug    chan debugCmd

	brk, dbg point
	brkOp    point // opcode to stop at
	backlog  backlog
}

type debugCmd struct {
	cmd  string
	addr uint16
	val  uint16
}

type point struct {
	addr uint16
	set  bool
}

func (p point) at(addr uint16) bool { return p.set && p.addr == addr }

// NewRunner returns a runner that attaches dev to each machine it runs.
// If state is non-nil the runner honours debug commands and reports state
// changes to it; this requires cfg.Dev.
func NewRunner(cfg Config, dev syn.Device, state StateFunc) *Runner {
	if state != nil && !cfg.Dev {
		panic("debugging requires dev mode")
	}
	return &Runner{
		cfg:      cfg,
		dev:      dev,
		state:    state,
		swap:     make(chan *syn.Machine),
		swapDone: make(chan bool),
		debug:    make(chan debugCmd, 64),
	}
}

// Swap replaces the running machine with m. It blocks until the runner
// has switched over.
func (r *Runner) Swap(m *syn.Machine) {
	if !r.cfg.Dev {
		panic("Swap called while not running in dev mode")
	}
	send(r, r.swap, m)
	<-r.swapDone
}

// Debug sends a debugger command to the runner. Commands are:
//
//	break, b     stop when addr is reached
//	op           stop at any instruction whose opcode is addr
//	debug, d     report state each time addr is reached
//	clear        clear the breakpoints and debug point
//	pause, p     stop before the next instruction
//	step, s      execute one instruction while stopped
//	cont, c      resume
//	reg          set register addr to val while stopped
//	exit         stop running and return from Run
func (r *Runner) Debug(cmd string, addr uint16) { r.DebugSet(cmd, addr, 0) }

// DebugSet is Debug with an extra value argument, used by "reg".
func (r *Runner) DebugSet(cmd string, addr, val uint16) {
	send(r, r.debug, debugCmd{cmd, addr, val})
}

const interruptRetry = 10 * time.Millisecond

// send delivers v on ch, interrupting any pending input read until the
// runner takes it, and once more after, so that a machine blocked in "in"
// comes back to look at ch.
func send[T any](r *Runner, ch chan T, v T) {
	r.interrupt()
	t := time.NewTicker(interruptRetry)
	defer t.Stop()
	for {
		select {
		case ch <- v:
			r.interrupt()
			return
		case <-t.C:
			r.interrupt()
		}
	}
}

// Run executes m. Outside dev mode it returns when the program stops, with
// nil if it stopped normally. In dev mode it returns only when ctx is
// done or an exit command is received.
func (r *Runner) Run(ctx context.Context, m *syn.Machine) error {
	r.attach(m)
	if !r.cfg.Dev {
		err := m.Run(ctx, r.cfg.Limit)
		r.flush()
		return err
	}

	var (
		halted  bool
		paused  bool
		resumed bool // skip the breakpoint once after resuming from it
	)
	for n := uint64(1); ; n++ {
		if halted || paused {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case nm := <-r.swap:
				m = r.swapped(nm)
				halted, paused = false, false
			case c := <-r.debug:
				switch r.command(c, m, halted, &paused) {
				case actExit:
					return nil
				case actStep:
					resumed = false
					if err := r.exec(m); err != nil {
						halted = r.stopped(m, err)
					}
					if !halted {
						r.report(m, PauseState)
					}
				case actResume:
					resumed = true
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case nm := <-r.swap:
			m = r.swapped(nm)
			continue
		case c := <-r.debug:
			if r.command(c, m, halted, &paused) == actExit {
				return nil
			}
			continue
		default:
		}

		if (r.brk.at(m.PC) || r.brkOp.at(m.Mem[m.PC])) && !resumed {
			paused = true
			r.report(m, BreakState)
			continue
		}
		resumed = false
		if r.dbg.at(m.PC) {
			r.report(m, DebugState)
		} else if n%refreshInterval == 0 {
			r.report(m, QuietState)
		}

		if err := r.exec(m); err != nil {
			halted = r.stopped(m, err)
		}
	}
}

const refreshInterval = 1 << 18

type action int

const (
	actNone action = iota
	actExit
	actStep
	actResume
)

func (r *Runner) command(c debugCmd, m *syn.Machine, halted bool, paused *bool) action {
	switch c.cmd {
	case "exit":
		return actExit
	case "b", "break":
		r.brk = point{c.addr, true}
	case "d", "debug":
		r.dbg = point{c.addr, true}
	case "op":
		r.brkOp = point{c.addr, true}
	case "clear":
		r.brk, r.dbg, r.brkOp = point{}, point{}, point{}
	case "p", "pause":
		if !*paused && !halted {
			*paused = true
			r.report(m, PauseState)
		}
	case "s", "step":
		if *paused && !halted {
			return actStep
		}
	case "c", "cont":
		if *paused && !halted {
			*paused = false
			r.report(m, ClearState)
			return actResume
		}
	case "reg":
		if *paused || halted {
			m.SetRegister(c.addr, int(c.val))
			r.report(m, PauseState)
		}
	default:
		log.Printf("debug: unknown command %q", c.cmd)
	}
	return actNone
}

// exec executes one instruction, enforcing the watchdog. An interrupted
// input read is not an error; the instruction is retried.
func (r *Runner) exec(m *syn.Machine) error {
	if r.cfg.Limit > 0 && m.Cycles >= r.cfg.Limit {
		return &syn.WatchdogError{Cycles: m.Cycles, PC: m.PC}
	}
	err := m.Exec()
	if errors.Is(err, ErrInterrupted) {
		return nil
	}
	return err
}

// stopped reports a stop of the program and whether it is final.
func (r *Runner) stopped(m *syn.Machine, err error) bool {
	r.flush()
	var h syn.HaltError
	switch {
	case errors.As(err, &h) && !h.Fatal():
		log.Printf("program stopped: %v", h.HaltCode)
	default:
		r.backlog.Emit(log.Printf)
		log.Printf("program stopped: %v", err)
	}
	r.report(m, HaltState)
	return true
}

func (r *Runner) swapped(m *syn.Machine) *syn.Machine {
	r.attach(m)
	if rs, ok := r.dev.(interface{ Reset() }); ok {
		rs.Reset()
	}
	r.report(m, ClearState)
	r.swapDone <- true
	return m
}

func (r *Runner) attach(m *syn.Machine) {
	m.Dev = r.dev
	r.backlog.Reset()
	if r.state != nil && m.Tracef == nil {
		m.Tracef = r.backlog.LazyPrintf
	}
}

func (r *Runner) report(m *syn.Machine, k StateKind) {
	if k != QuietState {
		r.flush()
	}
	if r.state != nil {
		r.state(m, k)
	}
}

func (r *Runner) interrupt() {
	if i, ok := r.dev.(interface{ Interrupt() }); ok {
		i.Interrupt()
	}
}

func (r *Runner) flush() {
	if f, ok := r.dev.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			log.Printf("flushing output: %v", err)
		}
	}
}

// Summary describes how a machine's run ended, for logging.
func Summary(m *syn.Machine, err error) string {
	s := fmt.Sprintf("%d cycles, pc %05d", m.Cycles, m.PC)
	if err != nil {
		s += ": " + err.Error()
	}
	return s
}
