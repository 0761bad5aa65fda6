// Package indicator shows the outcome of the latest cycle to the user.
package indicator

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"

	"gh_notifier/internal/model"
)

// Glyphs shown before the first cycle and after a failed one.
const (
	GlyphPending = "?"
	GlyphError   = "!"
)

// Glyph returns the status text for an outcome. A full page is not marked
// differently from a partial one.
func Glyph(o *model.CycleOutcome) string {
	switch {
	case o == nil:
		return GlyphPending
	case o.Failed():
		return GlyphError
	default:
		return strconv.Itoa(o.Count)
	}
}

// Log is a headless indicator that writes outcomes to the log.
type Log struct {
	log *slog.Logger
}

// NewLog creates a Log indicator.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// Update logs the outcome.
func (l *Log) Update(o model.CycleOutcome) {
	if o.Failed() {
		l.log.Warn("indicator", "glyph", Glyph(&o), "error", o.Describe())
		return
	}
	l.log.Info("indicator", "glyph", Glyph(&o), "new", o.NewCount)
}

// Channel hands outcomes from the scheduler to the UI goroutine. Only the
// latest undelivered outcome is kept; Update never blocks.
type Channel struct {
	ch chan model.CycleOutcome
}

// NewChannel creates a Channel.
func NewChannel() *Channel {
	return &Channel{ch: make(chan model.CycleOutcome, 1)}
}

// Update publishes o, replacing an outcome the UI has not picked up yet.
func (c *Channel) Update(o model.CycleOutcome) {
	for {
		select {
		case c.ch <- o:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// Outcomes returns the receiving side.
func (c *Channel) Outcomes() <-chan model.CycleOutcome {
	return c.ch
}

// OpenURL opens url in the default browser.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
