package errcode

// Code is a stable error identifier shared by the drivers and the reporter.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Invalid input: always checked first, never partially mutates state.
	InvalidID     Code = "invalid_id"
	InvalidParams Code = "invalid_params"
	Uninitialised Code = "uninitialised"
	ShapeMismatch Code = "shape_mismatch"
	PortInactive  Code = "port_inactive"

	// Resource contention.
	Timeout   Code = "timeout"
	SlaveBusy Code = "slave_busy"
	Rejected  Code = "rejected"

	// Protocol verification.
	VerifyMismatch Code = "verify_mismatch"

	// Formatting / buffer bounds.
	Overflow     Code = "overflow"
	EmptyMessage Code = "empty_message"

	// Lifecycle.
	AlreadyInitialised Code = "already_initialised"
	AlreadyClaimed     Code = "already_claimed"

	Error Code = "error" // generic fallback
)

// E wraps a Code with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap returns an *E for op, or nil when c is OK.
func Wrap(op string, c Code) error {
	if c == OK {
		return nil
	}
	return &E{C: c, Op: op}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
