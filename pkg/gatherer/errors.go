package gatherer

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"treblle-hq/agent/pkg/payload"
)

// Fixed error record for response bodies above MaxResponseBodySize.
const (
	OversizedErrorType    = "E_USER_ERROR"
	OversizedErrorMessage = "JSON response size is over 2MB"
)

// PanicError wraps a value recovered from a panic together with the location
// the panic was raised at.
type PanicError struct {
	Value any
	File  string
	Line  int
}

// NewPanicError builds a PanicError for a recovered value. It must be called
// from the deferred function that recovered, so the panic site is still on
// the stack.
func NewPanicError(v any) *PanicError {
	file, line := panicSite()
	return &PanicError{Value: v, File: file, Line: line}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// newErrorRecord describes err using only its innermost frame. fn, when
// non-nil, locates errors that carry no frame information.
func newErrorRecord(err error, fn Transformer) payload.ErrorRecord {
	file, line := errorFrame(err)
	if file == "" && fn != nil {
		file, line = funcLocation(fn)
	}
	return payload.ErrorRecord{
		Source:  payload.ErrorSource,
		Type:    errorType(err),
		Message: errorMessage(err),
		File:    file,
		Line:    line,
	}
}

// errorType names the concrete type of the innermost wrapped error.
func errorType(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		if inner, ok := pe.Value.(error); ok {
			return errorType(inner)
		}
		return "panic"
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func errorMessage(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) && pe == err {
		return fmt.Sprint(pe.Value)
	}
	return err.Error()
}

// errorFrame returns the innermost frame known for err: the origin of the
// deepest stack-carrying error in the chain, else the panic site.
func errorFrame(err error) (string, int) {
	var (
		trace pkgerrors.StackTrace
		file  string
		line  int
	)
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			if t := st.StackTrace(); len(t) > 0 {
				trace = t
			}
		}
		if pe, ok := e.(*PanicError); ok && pe.File != "" && file == "" {
			file, line = pe.File, pe.Line
		}
	}
	if len(trace) > 0 {
		if f, l := frameLocation(trace[0]); f != "" {
			return f, l
		}
	}
	return file, line
}

func frameLocation(f pkgerrors.Frame) (string, int) {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "", 0
	}
	return fn.FileLine(pc)
}

func funcLocation(fn Transformer) (string, int) {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "", 0
	}
	return f.FileLine(pc)
}

// panicSite walks the stack of a recovering goroutine and returns the first
// non-runtime frame below runtime.gopanic.
func panicSite() (string, int) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	seenPanic := false
	for {
		frame, more := frames.Next()
		if seenPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File, frame.Line
		}
		if frame.Function == "runtime.gopanic" {
			seenPanic = true
		}
		if !more {
			return "", 0
		}
	}
}
