package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a run on SIGINT/SIGTERM and tells the user what happened.
type InterruptHandler struct {
	writer      io.Writer
	cancelFunc  context.CancelFunc
	stop        func()
	activity    string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler. Activity names what is being
// interrupted, e.g. "Reconciliation".
func NewInterruptHandler(writer io.Writer, activity string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	if activity == "" {
		activity = "Run"
	}
	return &InterruptHandler{
		writer:   writer,
		activity: activity,
	}
}

// HandleInterrupts returns a context that is canceled on interrupt.
// Call Stop once the guarded work is finished.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.cancelFunc = cancel

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	h.stop = func() {
		signal.Stop(sigChan)
		close(done)
	}

	go func() {
		select {
		case <-sigChan:
		case <-done:
			return
		}
		h.mu.Lock()
		if !h.interrupted {
			h.interrupted = true
			h.showInterruptMessage()
		}
		h.mu.Unlock()
		cancel()
	}()

	return ctx
}

// Stop releases the signal handler and the derived context.
func (h *InterruptHandler) Stop() {
	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
	if h.cancelFunc != nil {
		h.cancelFunc()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning(h.activity+" interrupted!") +
		"\n" + FormatInfo("No results were written. Confirmed knowledge is unchanged.") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
