// Package instances keeps the explicit registry of local checkouts and the
// naming rules that map release versions to instance and branch names.
package instances
