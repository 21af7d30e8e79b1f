// Package exitcode defines exit codes for the line-mode commands.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task, rejected input).
	UserError = 1

	// ConfigError indicates the configuration could not be loaded or applied.
	ConfigError = 2

	// BackendError indicates the backend was unreachable or failed.
	BackendError = 3
)
