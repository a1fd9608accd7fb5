// Package gitrepo wraps a single Git working directory behind typed operations.
//
// Repository turns each git subcommand into one argument-vector invocation and
// verifies before every operation that the bound path is a repository. State
// changing operations report success as a boolean, while operations whose exit
// status a workflow must interpret (fetch, push, cherry-pick, stash, bisect)
// return the raw execshell.ExecutionResult.
package gitrepo
