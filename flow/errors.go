package flow

import (
	"fmt"

	flowerrors "github.com/nordwell-io/flowkit/errors"
)

// flowFmtConfigError builds a ConfigurationError with a formatted reason,
// matching the AppError constructors' fmt.Sprintf-based message style.
func flowFmtConfigError(operator, format string, args ...any) *flowerrors.AppError {
	return flowerrors.ConfigurationError(operator, fmt.Sprintf(format, args...))
}

// flowFmtGraphError builds a GraphError with a formatted reason.
func flowFmtGraphError(format string, args ...any) *flowerrors.AppError {
	return flowerrors.GraphError(fmt.Sprintf(format, args...))
}
