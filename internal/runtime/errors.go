package runtime

import (
	"errors"

	"github.com/RobokopU24/babel-filter/internal/errhandling"
	"github.com/RobokopU24/babel-filter/pkg/babel"
)

// Error codes reported in babel.ExecutionError.
const (
	ErrCodeConfigInvalid  = "CONFIG_INVALID"
	ErrCodeListFailed     = "LIST_FAILED"
	ErrCodeIndexFailed    = "INDEX_FAILED"
	ErrCodeFilterFailed   = "FILTER_FAILED"
	ErrCodeResidualFailed = "RESIDUAL_FAILED"
	ErrCodeCanceled       = "CANCELED"
)

// Stage names used in logs and execution errors.
const (
	StageSetup    = "setup"
	StageIndex    = "index"
	StageFilter   = "filter"
	StageResidual = "residual"
)

// ErrNilConfig is returned when the executor has no configuration.
var ErrNilConfig = errors.New("run configuration is nil")

// buildExecutionError creates an ExecutionError with the classified category
// of err. Cancellation overrides the stage code.
func buildExecutionError(code, stage string, err error) *babel.ExecutionError {
	cl := errhandling.ClassifyError(err)
	if cl.Category == errhandling.CategoryCanceled {
		code = ErrCodeCanceled
	}
	return &babel.ExecutionError{
		Code:     code,
		Message:  err.Error(),
		Stage:    stage,
		Category: string(cl.Category),
		Path:     cl.Path,
	}
}
