package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/types"
	"github.com/andresmejia3/rollcall/internal/utils"
)

// resultOut receives the single structured result line of a run
var resultOut io.Writer = os.Stdout

// exitError carries the process exit status after the result line was written.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// emit writes v as one JSON line.
func emit(v any) {
	json.NewEncoder(resultOut).Encode(v)
}

// exitCode maps a failure to the process status: 1 for setup resources, 2 for session errors.
func exitCode(err error) int {
	if apperrors.Fatal(err) {
		return 1
	}
	return 2
}

// fail reports err as the run's result line, explains it on stderr, and returns
// an error that makes Execute exit non-zero.
func fail(context string, err error, s *utils.SafeCommand) error {
	emit(types.ErrorResult{
		Status:    types.StatusError,
		ErrorKind: string(apperrors.KindOf(err)),
		Error:     err.Error(),
	})
	utils.ShowError(context, err, s)
	return &exitError{code: exitCode(err), err: err}
}
