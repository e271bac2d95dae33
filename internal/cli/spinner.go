package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a status line on stderr while a layout settles. When the
// simulation reports progress the line carries the step count, as in
// "Settling layout… 120/300".
type Spinner struct {
	out     io.Writer
	message string

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	started bool
	step    int
	total   int
	width   int // printed width of the last line
}

// newSpinner creates a spinner that stops on its own when ctx is done.
func newSpinner(ctx context.Context, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     os.Stderr,
		message: message,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Progress records the simulation step. It is safe to call from the
// goroutine running the simulation.
func (s *Spinner) Progress(step, total int) {
	s.mu.Lock()
	s.step, s.total = step, total
	s.mu.Unlock()
}

// line renders one animation frame.
func (s *Spinner) line(frame string) string {
	text := s.message
	if s.total > 0 {
		text += " " + fmt.Sprintf("%d/%d", s.step, s.total)
	}
	return styleIconSpinner.Render(frame) + " " + StyleDim.Render(text)
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				l := s.line(spinnerFrames[i%len(spinnerFrames)])
				fmt.Fprint(s.out, "\r"+l)
				s.width = lipgloss.Width(l)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and clears the line. Calling it again is a no-op.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if !started {
			return
		}
		<-s.stopped
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
		}
	})
}

// StopWithError stops the spinner and prints msg as an error.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	printError("%s", msg)
}

// Canceled reports whether the context the spinner was created with ended.
func (s *Spinner) Canceled() bool { return s.parent.Err() != nil }
