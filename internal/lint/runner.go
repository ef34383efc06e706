package lint

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// SpawnTimeout bounds a single validator run. glslangValidator finishes in
// milliseconds on real shaders; anything reaching this limit is wedged.
const SpawnTimeout = 10 * time.Second

// Runner executes the external validator and hands back its combined
// output. The error covers spawn-level failures only; a non-zero exit from
// a shader full of errors is the normal case and comes back as (output, nil).
type Runner interface {
	Run(ctx context.Context, path string, args ...string) ([]byte, error)
}

// ExecRunner shells out to the real executable.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, path string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, SpawnTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("timed out after %s: %w", SpawnTimeout, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The validator ran and used its exit status to report shader
		// errors; the output is the product we came for.
		return out, nil
	}
	return out, err
}
