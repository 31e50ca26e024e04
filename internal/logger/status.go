package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// eraseLine returns the cursor to column 0 and clears the line
const eraseLine = "\r\033[K"

// StatusLine renders flood wait countdowns in place on a terminal.
// Finished waits are left on their own line.
type StatusLine struct {
	mu      sync.Mutex
	w       io.Writer
	waiting *color.Color
	done    *color.Color
}

// NewStatusLine creates a StatusLine writing to stdout
func NewStatusLine() *StatusLine {
	return NewStatusLineWithWriter(os.Stdout)
}

// NewStatusLineWithWriter creates a StatusLine writing to w
func NewStatusLineWithWriter(w io.Writer) *StatusLine {
	return &StatusLine{
		w:       w,
		waiting: color.New(color.FgYellow),
		done:    color.New(color.FgGreen),
	}
}

// Countdown overwrites the current line with the remaining wait
func (s *StatusLine) Countdown(label string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprint(s.w, eraseLine)
	s.waiting.Fprintf(s.w, "FLOOD_WAIT, waiting %d seconds for %s", remaining, label)
}

// Waited replaces the countdown with a final summary line
func (s *StatusLine) Waited(label string, seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprint(s.w, eraseLine)
	s.done.Fprintf(s.w, "FLOOD_WAIT, waited %d seconds for %s\n", seconds, label)
}
