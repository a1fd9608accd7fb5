// Package bisect finds the commit that broke an acceptance test by letting git
// bisect drive a test runner between a known good revision and HEAD.
package bisect
