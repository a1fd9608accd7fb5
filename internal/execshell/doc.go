// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec through OSCommandRunner, exposes ShellExecutor to log the
// lifecycle of every invocation, and keeps command construction argv-based so
// that no shell string is ever interpolated. Non-zero exit codes are reported
// as CommandFailedError while still carrying the captured output, which lets
// callers treat exit status as data when a workflow needs to.
package execshell
