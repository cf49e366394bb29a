package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chazu/dmesh/pkg/logging"
)

// debounce collapses the burst of events editors emit on save.
const debounce = 100 * time.Millisecond

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dmesh:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dmesh", flag.ContinueOnError)
	scenePath := fs.String("scene", "", "scene TOML file to evaluate")
	watch := fs.Bool("watch", false, "re-evaluate whenever the scene file changes")
	level := fs.String("log", "info", "log level (debug, info, warn, error)")
	indent := fs.Bool("indent", false, "indent JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scenePath == "" {
		return errors.New("-scene is required")
	}
	if err := logging.Configure(*level, false); err != nil {
		return err
	}

	app := NewApp()
	defer app.Close()

	enc := json.NewEncoder(stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	emit := func() error {
		res := app.EvaluateFile(*scenePath)
		logging.For("cli").Info("evaluated", "scene", *scenePath,
			"meshes", len(res.Meshes), "errors", len(res.Errors), "warnings", len(res.Warnings))
		return enc.Encode(res)
	}

	if err := emit(); err != nil {
		return err
	}
	if !*watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchFile(ctx, *scenePath, emit)
}

// watchFile calls onChange after each write to path until ctx is done.
// The parent directory is watched so editors that replace the file on
// save keep triggering events.
func watchFile(ctx context.Context, path string, onChange func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	l := logging.For("watch")
	l.Info("watching", "path", abs)

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				l.Debug("changed", "op", e.Op.String())
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Error("watcher", "err", err)
		case <-timer.C:
			if err := onChange(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
