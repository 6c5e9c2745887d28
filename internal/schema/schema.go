package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// GridFile is the top-level HCL structure of a single grid file. A grid may
// be split across several files; the loader merges them.
type GridFile struct {
	Settings *Settings `hcl:"settings,block"`
	Jobs     []*Job    `hcl:"job,block"`
}

// Settings is the optional `settings` block with loader-wide knobs.
type Settings struct {
	MaxThreads *int `hcl:"max_threads,optional"`
}

// Job represents a `job` block from a user's grid file: one shell command
// with its dependencies and scheduling priority.
type Job struct {
	Name      string   `hcl:"name,label"`
	Run       string   `hcl:"run"`
	DependsOn []string `hcl:"depends_on,optional"`
	Priority  *int     `hcl:"priority,optional"`
	Dir       string   `hcl:"dir,optional"`

	// Env is captured unevaluated so the translator can apply cty
	// conversion with a useful error message.
	Env hcl.Expression `hcl:"env,optional"`
}
