package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/synacor/host"
	"github.com/nf/synacor/syn"
)

// devMode runs the image and restarts it whenever the file changes. With
// debug set it also runs the terminal debugger.
func devMode(cfg config, debug bool) error {
	cfg.image = filepath.Clean(cfg.image)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(filepath.Dir(cfg.image)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		runner *host.Runner
		dbg    *debugger
	)
	if debug {
		pr, pw := io.Pipe()
		defer pw.Close()
		dbg = newDebugger(pw)
		con := host.NewConsole(pr, dbg.output)
		runner = host.NewRunner(cfg.host, con, dbg.StateFunc)
		dbg.run = runner
		log.SetPrefix("")
		log.SetOutput(dbg.log)
		go func() {
			if err := dbg.Run(); err != nil {
				log.Fatalf("debug: %v", err)
			}
			log.SetOutput(os.Stderr)
			log.SetPrefix("synacor: ")
			runner.Debug("exit", 0)
		}()
	} else {
		runner = host.NewRunner(cfg.host, host.NewConsole(os.Stdin, os.Stdout), nil)
	}

	machines := make(chan *syn.Machine)
	go func() {
		started := false
		load := time.After(1 * time.Millisecond)
		for {
			select {
			case <-load:
				log.Printf("dev: load %s", filepath.Base(cfg.image))
				m, err := loadMachine(cfg)
				if err != nil {
					log.Printf("dev: %v", err)
					break
				}
				if !started {
					log.Printf("dev: start")
					machines <- m
					started = true
				} else {
					log.Printf("dev: reset")
					runner.Swap(m)
				}
			case ev := <-watcher.Event:
				if ev.Name == cfg.image && !ev.IsAttrib() {
					load = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				log.Printf("dev: watcher: %v", err)
			}
		}
	}()

	var m *syn.Machine
	select {
	case m = <-machines:
	case <-ctx.Done():
		return nil
	}
	err = runner.Run(ctx, m)
	if dbg != nil {
		dbg.app.Stop()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
