// Package errors implements kind-tagged errors for pgp-cp.
//
// Every failure of a run is classified with one Kind. The command maps the
// kind of the final error to the process exit status, so wrapping must never
// lose the kind of the innermost tagged error.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind uint8

const (
	// Any is the zero kind: no classification.
	Any Kind = iota
	// DependencyMissing means a required runtime dependency (gpg) is absent.
	DependencyMissing
	// EngineInit means the OpenPGP engine could not open the keyring home.
	EngineInit
	// IO means a quarantine, copy, move or delete operation failed.
	IO
	// Verification means the engine could not process the signature.
	Verification
	// InvalidSignature means the signature was processed and does not validate.
	InvalidSignature
	// InsufficientTrust means the signature is valid but the signer's trust is too low.
	InsufficientTrust
	// Usage means the command line or config file was rejected.
	Usage
)

// Separator is placed between the parts of an error message.
const Separator = ": "

func (k Kind) String() string {
	switch k {
	case Any:
		return "unspecified error"
	case DependencyMissing:
		return "missing dependency"
	case EngineInit:
		return "engine initialization failed"
	case IO:
		return "i/o failure"
	case Verification:
		return "verification failed"
	case InvalidSignature:
		return "invalid signature"
	case InsufficientTrust:
		return "insufficient trust"
	case Usage:
		return "usage error"
	}
	return fmt.Sprintf("unknown error kind %d", k)
}

// Op names the operation that failed, eg.: "copy", "mkdir".
type Op string

// Path is the filesystem path an operation was working on.
type Path string

// Error is a classified error.
type Error struct {
	Kind        Kind
	Op          Op
	Path        Path
	Description string
	Err         error
}

// E builds an error value from its arguments.
// There must be at least one argument or E panics.
// The type of each argument determines its meaning:
//
//	errors.Kind
//		The kind of error.
//	errors.Op
//		The operation being performed.
//	errors.Path
//		The path the operation was working on.
//	string
//		The description of the error.
//	error
//		The underlying error.
//
// If Kind is not given, the kind of the underlying error is promoted.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("called with no args")
	}

	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case Op:
			e.Op = arg
		case Path:
			e.Path = arg
		case string:
			e.Description = arg
		case error:
			e.Err = arg
		case nil:
		default:
			panic(fmt.Errorf("called with unknown type %T", arg))
		}
	}

	if e.isEmpty() && e.Err == nil {
		panic(fmt.Errorf("empty error"))
	}

	if e.Kind == Any {
		e.Kind = KindOf(e.Err)
	}
	return e
}

func (e *Error) isEmpty() bool {
	return e.Kind == Any && e.Op == "" && e.Path == "" && e.Description == ""
}

// Error returns the error message.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, string(e.Op))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("%q", string(e.Path)))
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Kind.String()
	}
	return strings.Join(parts, Separator)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Description == "" || t.Description == e.Description)
}

// KindOf returns the outermost non-Any kind found in the error chain.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind != Any {
			return e.Kind
		}
		err = errors.Unwrap(err)
	}
	return Any
}

// IsKind tells if err is of kind k.
func IsKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New from the standard library.
func New(msg string) error {
	return errors.New(msg)
}
