// Package logging owns the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once sync.Once
	root *log.Logger
)

// Logger returns the root logger, creating it on first use.
func Logger() *log.Logger {
	once.Do(func() {
		root = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "dmesh",
		})
		root.SetLevel(log.InfoLevel)
	})
	return root
}

// For returns a child logger tagged with a component prefix. Children copy
// the root's level when created, so take them after Configure and keep
// them per component instance rather than in package variables.
func For(component string) *log.Logger {
	return Logger().WithPrefix("dmesh/" + component)
}

// Configure sets the root level by name ("debug", "info", "warn",
// "error") and whether call sites are reported.
func Configure(level string, caller bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	l := Logger()
	l.SetLevel(lvl)
	l.SetReportCaller(caller)
	return nil
}

// SetOutput redirects the root logger.
func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

// Discard silences the root logger; tests use it to keep output clean.
func Discard() {
	SetOutput(io.Discard)
}
