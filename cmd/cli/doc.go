// Package cli constructs the mdk command-line interface, wiring the Cobra
// command hierarchy, the configuration loader, structured logging and the
// backport and blame commands.
package cli
