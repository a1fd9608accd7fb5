// Package ui renders command lifecycle events as concise console lines so the
// operator can follow a backport or bisection while structured diagnostics
// keep flowing through the regular logger.
package ui
