// Package cli handles cmd line input for trying a suggestion source by hand.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	idStyle    = lipgloss.NewStyle().Faint(true)
)

// InputHandler reads fragments from stdin and prints what the control would display.
// A line of the form ":N" selects the N-th displayed suggestion (1 based).
type InputHandler struct {
	control *suggest.Control
	in      io.Reader
	out     *log.Logger
	timeout time.Duration
	showIDs bool
}

// NewInputHandler creates a handler printing through out.
func NewInputHandler(control *suggest.Control, in io.Reader, out *log.Logger, showIDs bool) *InputHandler {
	return &InputHandler{
		control: control,
		in:      in,
		out:     out,
		timeout: 10 * time.Second,
		showIDs: showIDs,
	}
}

// Start loops until the input closes or ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("typeahead CLI")
	h.out.Print("type a fragment and press Enter, :N to select (Ctrl+C to exit):")

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleSelect(line[1:])
			continue
		}
		h.handleInput(ctx, line)
	}
	return scanner.Err()
}

// handleInput runs one Update and blocks until its final render arrives.
func (h *InputHandler) handleInput(ctx context.Context, fragment string) {
	start := time.Now()
	renders := make(chan suggest.Render, 1)

	h.control.Update(ctx, fragment, func(r suggest.Render) {
		if !r.Pending {
			renders <- r
		}
	})

	var r suggest.Render
	select {
	case r = <-renders:
	case <-time.After(h.timeout):
		h.out.Warnf("No answer for '%s' after %v", fragment, h.timeout)
		return
	case <-ctx.Done():
		return
	}
	log.Debugf("Took [ %v ] for fragment '%s'", time.Since(start), fragment)

	if len(r.Suggestions) == 0 {
		h.out.Warnf("No suggestions for '%s'", fragment)
		return
	}

	h.out.Printf("%d suggestions for '%s':", len(r.Suggestions), fragment)
	for i, rec := range r.Suggestions {
		line := fmt.Sprintf("%2d. %s", i+1, valueStyle.Render(rec.Value))
		if h.showIDs && rec.HasID() {
			line += " " + idStyle.Render("(id: "+string(rec.ID)+")")
		}
		h.out.Print(line)
	}
}

func (h *InputHandler) handleSelect(arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		h.out.Errorf("Not a number: %q", arg)
		return
	}
	rec, err := h.control.Select(n - 1)
	if err != nil {
		h.out.Errorf("%v", err)
		return
	}
	if rec.HasID() {
		h.out.Print("selected", "value", rec.Value, "id", string(rec.ID))
		return
	}
	h.out.Print("selected", "value", rec.Value)
}
