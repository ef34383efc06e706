package lint

import (
	"fmt"
)

// ToolError reports that the validator could not produce output at all: the
// executable is missing, not runnable, or had to be killed. A shader that
// fails to compile is not a ToolError; that is the validator doing its job.
type ToolError struct {
	Path string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("glslangValidator (%s) could not run: %v", e.Path, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
