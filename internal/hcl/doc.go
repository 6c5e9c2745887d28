// Package hcl provides the concrete HCL implementation of the grid loading
// interface defined in the config package. It is responsible for file
// discovery, HCL parsing, and schema-to-model translation.
package hcl
