package config

import (
	"errors"
	"fmt"
)

// Resolution errors. Every failure returned by Resolve wraps one of these.
var (
	ErrInvalidCompilerConfig  = errors.New("invalid compiler config")
	ErrInvalidOptimizerConfig = errors.New("invalid optimizer config")
	ErrInvalidEndpoint        = errors.New("invalid endpoint")
	ErrMissingSigningKey      = errors.New("missing signing key")
	ErrMissingAPIKey          = errors.New("missing API key")
)

// ValidationError names the field that failed and the rule it violated.
type ValidationError struct {
	Field string // dotted path, e.g. "compiler.optimizer.runs"
	Rule  string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, field, rule string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Err: err}
}

// ErrorKind returns a short label for a resolution error, suitable for
// metric labels. Unknown errors map to "error".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCompilerConfig):
		return "invalid_compiler_config"
	case errors.Is(err, ErrInvalidOptimizerConfig):
		return "invalid_optimizer_config"
	case errors.Is(err, ErrInvalidEndpoint):
		return "invalid_endpoint"
	case errors.Is(err, ErrMissingSigningKey):
		return "missing_signing_key"
	case errors.Is(err, ErrMissingAPIKey):
		return "missing_api_key"
	default:
		return "error"
	}
}
