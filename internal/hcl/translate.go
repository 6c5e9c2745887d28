package hcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/loadgridgo/internal/config"
	"github.com/vk/loadgridgo/internal/schema"
)

// translateGridFile converts the HCL-specific grid schema into the agnostic
// model.
func translateGridFile(raw *schema.GridFile) (*config.Grid, error) {
	grid := &config.Grid{}
	if raw.Settings != nil && raw.Settings.MaxThreads != nil {
		grid.Settings.MaxThreads = *raw.Settings.MaxThreads
	}
	for _, s := range raw.Jobs {
		job, err := translateJob(s)
		if err != nil {
			return nil, err
		}
		grid.Jobs = append(grid.Jobs, job)
	}
	return grid, nil
}

func translateJob(s *schema.Job) (*config.Job, error) {
	job := &config.Job{
		Name:      s.Name,
		Run:       s.Run,
		DependsOn: s.DependsOn,
		Dir:       s.Dir,
	}
	if s.Priority != nil {
		job.Priority = *s.Priority
	}
	env, err := translateEnv(s)
	if err != nil {
		return nil, err
	}
	job.Env = env
	return job, nil
}

// translateEnv evaluates the job's env expression and converts it into a
// string map.
func translateEnv(s *schema.Job) (map[string]string, error) {
	if s.Env == nil {
		return nil, nil
	}
	val, diags := s.Env.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("job %q: invalid env: %w", s.Name, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	converted, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("job %q: env must be a map of strings: %w", s.Name, err)
	}
	if converted.LengthInt() == 0 {
		return nil, nil
	}
	env := make(map[string]string, converted.LengthInt())
	for k, v := range converted.AsValueMap() {
		if v.IsNull() {
			return nil, fmt.Errorf("job %q: env value for %q is null", s.Name, k)
		}
		env[k] = v.AsString()
	}
	return env, nil
}
