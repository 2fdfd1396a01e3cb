package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"price-watcher/internal/types"
)

// ConsoleGate waits for the operator to press Enter after solving a
// challenge in the visible browser. It blocks without a timeout; only the
// caller's context can abandon the wait. Lines typed while no prompt is
// shown are discarded.
type ConsoleGate struct {
	out    io.Writer
	logger types.Logger

	once  sync.Once
	in    *bufio.Reader
	lines chan error

	mu      sync.Mutex
	waiting bool
	closed  error
}

// NewConsoleGate creates a gate reading confirmations from in
func NewConsoleGate(in io.Reader, out io.Writer, logger types.Logger) *ConsoleGate {
	return &ConsoleGate{
		out:    out,
		logger: logger,
		in:     bufio.NewReader(in),
		lines:  make(chan error, 1),
	}
}

// Wait prints the prompt for item and blocks until a line is read, the input
// is closed or ctx is done.
func (g *ConsoleGate) Wait(ctx context.Context, item types.Item) error {
	g.mu.Lock()
	if g.closed != nil {
		g.mu.Unlock()
		return g.closed
	}
	g.waiting = true
	g.mu.Unlock()
	defer g.stopWaiting()

	g.once.Do(func() { go g.readLoop() })

	g.logger.Warnf("Human verification required for %s (%s)", item.Name, item.URL)
	fmt.Fprintf(g.out, "\n[HUMAN CHECK] %s\n", item.Name)
	fmt.Fprintln(g.out, "Solve the verification in the browser window and open the product page.")
	fmt.Fprint(g.out, "Press Enter when ready... ")

	select {
	case err := <-g.lines:
		if err != nil {
			return err
		}
		g.logger.Infof("Operator confirmed verification for %s", item.Name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopWaiting closes the prompt and drops a line that arrived after the
// confirmation was taken.
func (g *ConsoleGate) stopWaiting() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.waiting = false
	select {
	case <-g.lines:
	default:
	}
}

// readLoop owns the reader so an abandoned Wait never leaves a second
// goroutine competing for input.
func (g *ConsoleGate) readLoop() {
	for {
		_, err := g.in.ReadString('\n')
		if err == io.EOF {
			err = types.ErrGateClosed
		}
		g.deliver(err)
		if err != nil {
			return
		}
	}
}

// deliver hands a line or the read error to the active prompt, if any
func (g *ConsoleGate) deliver(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.closed = err
	}
	if !g.waiting {
		if err == nil {
			g.logger.Debug("Ignoring input received outside a verification prompt")
		}
		return
	}
	select {
	case g.lines <- err:
	default:
	}
}
