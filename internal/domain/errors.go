package domain

import "errors"

var (
	// ErrSourceUnavailable is returned when the statistics tool cannot be run or did not answer in time.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParse is returned when the tool's output does not match the expected schema.
	ErrParse = errors.New("unexpected source output")
	// ErrBind is returned when the HTTP listener cannot be opened.
	ErrBind = errors.New("cannot bind listen address")
)

// ErrorKind maps a sampling error to a short label value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "error"
	}
}
