package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/vk/loadgridgo/internal/config"
	"github.com/vk/loadgridgo/internal/ctxlog"
	"github.com/vk/loadgridgo/internal/loader"
)

// commandJob compiles one grid job into the loader job function running its
// shell command. The run context, not the worker context, carries
// cancellation: canceling the run kills the command.
func commandJob(runCtx context.Context, spec *config.Job) loader.JobFunc {
	return func(ctx context.Context, self *loader.Job) error {
		logger := ctxlog.FromContext(ctx).With("job", self.Name())

		cmd := exec.CommandContext(runCtx, "sh", "-c", spec.Run)
		cmd.Dir = spec.Dir
		if len(spec.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range spec.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}

		logger.Debug("Command starting.", "run", spec.Run)
		started := time.Now()
		out, err := cmd.CombinedOutput()
		if len(out) > 0 {
			logger.Debug("Command output.", "output", string(out))
		}
		if err != nil {
			return fmt.Errorf("command %q: %w", spec.Run, err)
		}
		logger.Debug("Command finished.", "elapsed", time.Since(started))
		return nil
	}
}
