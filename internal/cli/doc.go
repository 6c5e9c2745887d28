// Package cli parses the command line into an app.Config and owns the
// process exit-code conventions.
package cli
