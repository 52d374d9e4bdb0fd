package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers deciding whether to retry or how to
// present it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotConnected means the transaction id is unknown or expired.
	KindNotConnected
	// KindConfiguration covers invalid settings such as top_k < 1 or an
	// unrecognized report option.
	KindConfiguration
	// KindNoProfilingData means no instrumented routine produced samples.
	KindNoProfilingData
	// KindRoutineNotFound means a routine vanished between sampling and reporting.
	KindRoutineNotFound
	// KindDataSource is a transient failure reading samples. Safe to retry.
	KindDataSource
	// KindStorage is a write, rename or index failure in the report store.
	KindStorage
	// KindNotFound means a stored report id does not exist.
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindNotConnected:    "not_connected",
	KindConfiguration:   "configuration",
	KindNoProfilingData: "no_profiling_data",
	KindRoutineNotFound: "routine_not_found",
	KindDataSource:      "data_source",
	KindStorage:         "storage",
	KindNotFound:        "not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrNotConnected    = &Error{Kind: KindNotConnected}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrNoProfilingData = &Error{Kind: KindNoProfilingData}
	ErrRoutineNotFound = &Error{Kind: KindRoutineNotFound}
	ErrDataSource      = &Error{Kind: KindDataSource}
	ErrStorage         = &Error{Kind: KindStorage}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

// Error is a classified error. Op names the failing operation, OID is set for
// routine-scoped failures.
type Error struct {
	Kind Kind
	Op   string
	OID  uint32
	Msg  string
	Err  error
}

// E builds a classified error wrapping err.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error with a formatted message and no cause.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// RoutineNotFound reports that oid has no definition in the data source.
func RoutineNotFound(op string, oid uint32) *Error {
	return &Error{Kind: KindRoutineNotFound, Op: op, OID: oid, Msg: fmt.Sprintf("function with oid %d not found", oid)}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = defaultMessage(e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Msg == "" && t.OID == 0 && t.Kind == e.Kind
}

func defaultMessage(k Kind) string {
	switch k {
	case KindNotConnected:
		return "not connected to server or connection with the server has been closed"
	case KindNoProfilingData:
		return "no profiling data found (possible cause: no functions were run during the monitoring duration)"
	case KindConfiguration:
		return "invalid configuration"
	case KindRoutineNotFound:
		return "function not found"
	case KindDataSource:
		return "failed to read profiling data"
	case KindStorage:
		return "failed to store report"
	case KindNotFound:
		return "report not found"
	default:
		return "unknown error"
	}
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether re-running the failed call may succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == KindDataSource
}

// IsUserFacing reports whether err should be shown as a plain message
// without being logged as a failure.
func IsUserFacing(err error) bool {
	switch KindOf(err) {
	case KindNotConnected, KindNoProfilingData:
		return true
	}
	return false
}
