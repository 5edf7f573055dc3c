package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/synacor/host"
	"github.com/nf/synacor/syn"
)

type debugger struct {
	run  *host.Runner
	feed chan string // lines of program input

	output *tview.TextView
	log    *tview.TextView
	watch  *tview.TextView
	state  *tview.TextView
	input  *tview.InputField
	side   *tview.Flex
	cols   *tview.Flex
	rows   *tview.Flex
	app    *tview.Application

	mu       sync.Mutex
	brk, dbg *uint16
	brkOp    *syn.Op
	watches  []uint16
}

// newDebugger returns a debugger that writes program input lines to in.
func newDebugger(in io.Writer) *debugger {
	d := &debugger{
		feed: make(chan string, 16),
		output: tview.NewTextView().
			SetMaxLines(5000).
			SetScrollable(true),
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		side: tview.NewFlex().
			SetDirection(tview.FlexRow),
		cols: tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.output.SetChangedFunc(func() { d.app.Draw() })
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.side.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.cols.
		AddItem(d.output, 0, 3, false).
		AddItem(d.side, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := d.input.GetText()
		d.input.SetText("")
		d.handle(line)
	})

	go func() {
		for line := range d.feed {
			if _, err := io.WriteString(in, line+"\n"); err != nil {
				log.Printf("input: %v", err)
				return
			}
		}
	}()
	return d
}

func (d *debugger) Run() error { return d.app.Run() }

func (d *debugger) handle(line string) {
	if !strings.HasPrefix(line, ":") {
		fmt.Fprintln(d.output, line)
		select {
		case d.feed <- line:
		default:
			log.Printf("input dropped: %q", line)
		}
		return
	}
	c, err := parseCommand(line)
	if err != nil {
		log.Print(err)
		return
	}
	switch c.name {
	case "exit":
		d.app.Stop()
	case "break", "debug":
		if !c.hasAddr {
			d.clearPoints()
			return
		}
		if c.op {
			d.run.Debug("op", c.addr)
			op := syn.Op(c.addr)
			d.mu.Lock()
			d.brkOp = &op
			d.mu.Unlock()
			log.Printf("set break on %v", op)
			return
		}
		d.run.Debug(c.name, c.addr)
		d.mu.Lock()
		addr := c.addr
		if c.name == "break" {
			d.brk = &addr
		} else {
			d.dbg = &addr
		}
		d.mu.Unlock()
		log.Printf("set %s %05d", c.name, c.addr)
	case "clear":
		d.clearPoints()
	case "watch":
		d.mu.Lock()
		d.watches = append(d.watches, c.addr)
		d.mu.Unlock()
		log.Printf("watching %05d", c.addr)
	case "reg":
		d.run.DebugSet("reg", c.addr, c.val)
	default:
		d.run.Debug(c.name, 0)
	}
}

func (d *debugger) clearPoints() {
	d.run.Debug("clear", 0)
	d.mu.Lock()
	d.brk, d.dbg, d.brkOp = nil, nil, nil
	d.mu.Unlock()
	log.Print("cleared break and debug")
}

type command struct {
	name    string
	addr    uint16 // address, opcode, or register for reg
	val     uint16
	hasAddr bool
	op      bool // addr is an opcode
}

var commandNames = map[string]string{
	"b": "break", "break": "break",
	"d": "debug", "debug": "debug",
	"s": "step", "step": "step",
	"c": "cont", "cont": "cont",
	"p": "pause", "pause": "pause",
	"w": "watch", "watch": "watch",
	"r": "reg", "reg": "reg",
	"clear": "clear",
	"exit":  "exit",
}

// parseCommand parses a debugger command line of the form ":name args".
func parseCommand(line string) (command, error) {
	f := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(f) == 0 {
		return command{}, errors.New("empty command")
	}
	name, ok := commandNames[f[0]]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q", f[0])
	}
	c, args := command{name: name}, f[1:]
	var nargs int
	switch name {
	case "break", "debug":
		if len(args) > 1 {
			return c, fmt.Errorf("%s: too many arguments", name)
		}
		nargs = len(args)
	case "watch":
		nargs = 1
	case "reg":
		nargs = 2
	}
	if len(args) != nargs {
		return c, fmt.Errorf("%s: want %d arguments, got %d", name, nargs, len(args))
	}
	if nargs == 0 {
		return c, nil
	}

	if name == "break" {
		if op, ok := syn.Lookup(args[0]); ok {
			c.addr, c.hasAddr, c.op = uint16(op), true, true
			return c, nil
		}
	}
	addr, err := parseWord(args[0], syn.MemSize-1)
	if err != nil {
		return c, fmt.Errorf("%s: %v", name, err)
	}
	c.addr, c.hasAddr = addr, true
	if name == "reg" {
		if c.addr >= syn.NumRegs {
			return c, fmt.Errorf("reg: invalid register %d", c.addr)
		}
		if c.val, err = parseWord(args[1], syn.MaxLiteral); err != nil {
			return c, fmt.Errorf("reg: %v", err)
		}
	}
	return c, nil
}

func parseWord(s string, max uint64) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v > max {
		return 0, fmt.Errorf("%d out of range", v)
	}
	return uint16(v), nil
}

func (d *debugger) StateFunc(m *syn.Machine, k host.StateKind) {
	var (
		watch = d.watchContent(m)
		state string
	)
	if k != host.ClearState && k != host.QuietState {
		state = stateMsg(m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case host.DebugState, host.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case host.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case host.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case host.HaltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != host.QuietState {
			d.state.SetText(state)
		}
	})
}

func stateMsg(m *syn.Machine, k host.StateKind) string {
	in, _ := m.Instr(m.PC)
	kind := "       "
	switch k {
	case host.BreakState:
		kind = "[break]"
	case host.DebugState:
		kind = "[debug]"
	case host.PauseState:
		kind = "[pause]"
	case host.HaltState:
		kind = "[HALT!]"
	}
	top := "-"
	if v, ok := m.Stack.Peek(); ok {
		top = fmt.Sprint(v)
	}
	return fmt.Sprintf("%05d %-24v %s\nregs: %v\nstack: %d deep, top %s\n",
		m.PC, in, kind, m.Reg, m.Stack.Len(), top)
}

func (d *debugger) watchContent(m *syn.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if a := d.brk; a != nil {
		fmt.Fprintf(&b, "[%05d] brk!\n", *a)
	}
	if op := d.brkOp; op != nil {
		fmt.Fprintf(&b, "[%v] brk!\n", *op)
	}
	if a := d.dbg; a != nil {
		fmt.Fprintf(&b, "[%05d] dbg?\n", *a)
	}
	for _, a := range d.watches {
		fmt.Fprintf(&b, "[%05d] %5d  %v\n", a, m.Mem[a], syn.OperandString(m.Mem[a]))
	}
	return b.String()
}
