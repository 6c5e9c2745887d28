// Package app contains the core application logic: loading a grid,
// compiling it into loader jobs, and driving one run end to end, decoupled
// from any specific entrypoint like a CLI.
package app
