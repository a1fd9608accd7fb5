// Package pathutils normalizes user supplied filesystem paths.
package pathutils

import (
	"path/filepath"
	"strings"
)

// Resolver expands home shortcuts and anchors relative paths at a base directory.
type Resolver struct {
	HomeExpander  *HomeExpander
	BaseDirectory string
}

// NewResolver anchors relative paths at baseDirectory.
func NewResolver(baseDirectory string) Resolver {
	return Resolver{HomeExpander: NewHomeExpander(), BaseDirectory: baseDirectory}
}

// Resolve returns an absolute, cleaned path. Blank input stays blank.
func (resolver Resolver) Resolve(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return ""
	}
	expandedPath := resolver.HomeExpander.Expand(trimmedPath)
	if filepath.IsAbs(expandedPath) {
		return filepath.Clean(expandedPath)
	}
	if len(resolver.BaseDirectory) > 0 {
		return filepath.Join(resolver.BaseDirectory, expandedPath)
	}
	absolutePath, absoluteError := filepath.Abs(expandedPath)
	if absoluteError != nil {
		return filepath.Clean(expandedPath)
	}
	return absolutePath
}
