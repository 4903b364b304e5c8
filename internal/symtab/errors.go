package symtab

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Error kinds returned by registry and formatting operations. Match with errors.Is.
var (
	// ErrUnknownSymbol is returned when a name must be present but is not.
	ErrUnknownSymbol = errors.New("undefined symbol")

	// ErrUnsupportedType is returned for dtypes without element storage.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrOutOfMemory is returned when the memory guard rejects an allocation.
	ErrOutOfMemory = errors.New("out of memory")
)

// Kind names the error kind of err: UnknownSymbol, UnsupportedType,
// OutOfMemory, or Error for anything else.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSymbol):
		return "UnknownSymbol"
	case errors.Is(err, ErrUnsupportedType):
		return "UnsupportedType"
	case errors.Is(err, ErrOutOfMemory):
		return "OutOfMemory"
	default:
		return "Error"
	}
}

// ErrorContext decorates err with its kind, the operation and the caller's
// location, for log lines. It is presentation only.
//
//	[UnknownSymbol] lookup: undefined symbol: id_9 (handler.go:120)
func ErrorContext(err error, op string) string {
	loc := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		loc = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return fmt.Sprintf("[%s] %s: %v (%s)", Kind(err), op, err, loc)
}

func unknownSymbol(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
}
