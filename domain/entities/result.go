package entities

import (
	stdErrors "errors"
)

// Result is the integer status returned to the host from every entry point.
// The values mirror DOME_Result.
type Result int32

const (
	// ResultSuccess tells the host the callback completed.
	ResultSuccess Result = 0

	// ResultFailure tells the host the callback failed. For hooks invoked
	// while a script fiber runs, the host aborts that fiber.
	ResultFailure Result = 1

	// ResultUnknown is returned by the init entry point when the capability
	// table itself could not be loaded, so the host can tell a broken ABI
	// apart from a failing init hook.
	ResultUnknown Result = 2
)

// String returns a short name for the result.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// OK reports whether r is the success sentinel.
func (r Result) OK() bool {
	return r == ResultSuccess
}

// LoadFailure is implemented by errors that mean the host ABI could not be
// bound at all. ResultFrom maps them to ResultUnknown.
type LoadFailure interface {
	error
	LoadFailure() bool
}

// ResultFrom translates a Go error into the host sentinel.
// It is the only place where errors become integers.
func ResultFrom(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	var lf LoadFailure
	if stdErrors.As(err, &lf) && lf.LoadFailure() {
		return ResultUnknown
	}
	return ResultFailure
}
