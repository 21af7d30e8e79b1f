// Package cli runs one console operation per invocation and prints the
// result, for scripts and terminals without a full-screen UI.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/api"
	"github.com/Joseda-hg/taskconsole/internal/console"
	"github.com/Joseda-hg/taskconsole/internal/exitcode"
)

type command struct {
	usage    string
	synopsis string
	run      func(ctx context.Context, r *Runner, args []string) int
}

var commands map[string]command

// Set in init because runHelp reads the table.
func init() {
	commands = map[string]command{
		"list":     {"list", "List all tasks", runList},
		"add":      {"add -title <title> [-description <text>]", "Create a task", runAdd},
		"edit":     {"edit -id <id> [-title <title>] [-description <text>]", "Update a task", runEdit},
		"rm":       {"rm -id <id> [-yes]", "Delete a task", runRm},
		"comments": {"comments -id <id>", "List the comments of a task", runComments},
		"comment":  {"comment -id <id> -content <text>", "Comment on a task", runComment},

		"comment-edit": {"comment-edit -id <comment id> -content <text>", "Change a comment", runCommentEdit},
		"comment-rm":   {"comment-rm -id <comment id> [-yes]", "Delete a comment", runCommentRm},
		"help":     {"help", "Show this help", runHelp},
	}
}

// IsCommand reports whether name is a line-mode command.
func IsCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

type Runner struct {
	svc    console.Service
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	log    logrus.FieldLogger
}

func NewRunner(svc console.Service, in io.Reader, out, errOut io.Writer, log logrus.FieldLogger) *Runner {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Runner{svc: svc, in: in, out: out, errOut: errOut, log: log}
}

// Run dispatches args[0] and returns the exit code.
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return runHelp(ctx, r, nil)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(r.errOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	return cmd.run(ctx, r, args[1:])
}

// console builds a fresh console for one command. confirm may be nil for
// commands that never delete.
func (r *Runner) console(confirm console.Confirmer) *console.Console {
	if confirm == nil {
		confirm = autoConfirm(false)
	}
	return console.New(r.svc, &streamAlerter{out: r.errOut}, confirm, console.WithLogger(r.log))
}

// parse parses flags and rejects stray positional arguments.
func (r *Runner) parse(fs *flag.FlagSet, args []string) bool {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		errStr := err.Error()
		if strings.HasPrefix(errStr, "flag provided but not defined: ") {
			fmt.Fprintf(r.errOut, "error: unknown flag: %s\n", strings.TrimPrefix(errStr, "flag provided but not defined: "))
			return false
		}
		fmt.Fprintf(r.errOut, "error: %s\n", errStr)
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(r.errOut, "error: unexpected argument: %s\n", fs.Arg(0))
		return false
	}
	return true
}

// backendFailure reports err and maps it to an exit code. Rejections by the
// backend (4xx) are the user's to fix.
func (r *Runner) backendFailure(err error) int {
	if api.IsNotFound(err) {
		fmt.Fprintln(r.errOut, "error: not found")
		return exitcode.UserError
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		fmt.Fprintf(r.errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprintf(r.errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}

func runHelp(_ context.Context, r *Runner, _ []string) int {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(r.out, "Usage: taskconsole [flags] [command]")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Without a command the interactive console starts.")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Commands:")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(r.out, "  %-55s %s\n", cmd.usage, cmd.synopsis)
	}
	return exitcode.Success
}
