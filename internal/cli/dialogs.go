package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type streamAlerter struct {
	out io.Writer
}

func (a *streamAlerter) Alert(_ context.Context, message string) {
	fmt.Fprintf(a.out, "error: %s\n", message)
}

type autoConfirm bool

func (c autoConfirm) Confirm(context.Context, string) bool {
	return bool(c)
}

// promptConfirmer asks on out and reads one line from in. Anything but
// y/yes is a no, including EOF.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer

	answered bool
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *promptConfirmer) Confirm(_ context.Context, message string) bool {
	fmt.Fprintf(c.out, "%s [y/N] ", message)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(c.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		c.answered = true
	}
	return c.answered
}
