// Package backport replays an issue branch onto the branches of other release
// instances. Each target version is processed independently and the outcome of
// every target is collected into a Report.
package backport
