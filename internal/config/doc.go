// Package config defines the format-agnostic grid model for the
// application, along with the Loader interface for reading it from various
// sources.
//
// The config.Grid is the single source of truth for the app's job-building
// and planning layers. The concrete HCL implementation lives in the hcl
// package.
package config
