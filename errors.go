// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/creachadair/jserial/jpath"
	"github.com/creachadair/jserial/token"
)

// ErrorKind classifies the errors reported by the engine.
type ErrorKind byte

// Constants defining the valid ErrorKind values.
const (
	KindUnknown                ErrorKind = iota // unclassified failure
	KindUnsupportedShape                        // type cannot be classified
	KindNoFactory                               // type cannot be constructed
	KindStructuralMismatch                      // input does not match the expected shape
	KindConverterContract                       // a converter over- or under-consumed tokens
	KindExtensionTargetInvalid                  // extension member is not map-shaped
	KindSyntax                                  // input is not well-formed JSON
	KindDepthExceeded                           // nesting is deeper than the configured maximum
)

var kindStr = [...]string{
	KindUnknown:                "error",
	KindUnsupportedShape:       "unsupported shape",
	KindNoFactory:              "no factory",
	KindStructuralMismatch:     "structural mismatch",
	KindConverterContract:      "converter contract violation",
	KindExtensionTargetInvalid: "invalid extension target",
	KindSyntax:                 "syntax error",
	KindDepthExceeded:          "depth exceeded",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return kindStr[KindUnknown]
}

// Error is the concrete type of errors reported by a Serializer and its
// decoders and encoders.
type Error struct {
	Kind    ErrorKind
	Path    string       // document path at the point of failure, e.g. $.items[2]
	Offset  int64        // input offset of the current token when reading, or -1
	Type    reflect.Type // the type being converted, if known
	Message string

	err    error
	member jpath.Expr // location of the failure relative to the annotated path
}

// Sentinel errors for use with errors.Is. An error matches a sentinel if it
// is an *Error of the same Kind.
var (
	ErrUnsupportedShape       = &Error{Kind: KindUnsupportedShape}
	ErrNoFactory              = &Error{Kind: KindNoFactory}
	ErrStructuralMismatch     = &Error{Kind: KindStructuralMismatch}
	ErrConverterContract      = &Error{Kind: KindConverterContract}
	ErrExtensionTargetInvalid = &Error{Kind: KindExtensionTargetInvalid}
	ErrSyntax                 = &Error{Kind: KindSyntax}
	ErrDepthExceeded          = &Error{Kind: KindDepthExceeded}
)

// Error satisfies the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("jserial: ")
	sb.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&sb, " at %s", e.Path)
	}
	if e.Type != nil {
		fmt.Fprintf(&sb, " (type %v)", e.Type)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.err.Error())
	}
	return sb.String()
}

// Unwrap supports error wrapping.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error with the same Kind as e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newErrorf(kind ErrorKind, t reflect.Type, msg string, args ...any) *Error {
	return &Error{Kind: kind, Offset: -1, Type: t, Message: fmt.Sprintf(msg, args...)}
}

func wrapError(kind ErrorKind, t reflect.Type, err error, msg string, args ...any) *Error {
	e := newErrorf(kind, t, msg, args...)
	e.err = err
	return e
}

func mismatchf(t reflect.Type, msg string, args ...any) *Error {
	return newErrorf(KindStructuralMismatch, t, msg, args...)
}

func unexpectedToken(t reflect.Type, got token.Kind) *Error {
	return mismatchf(t, "unexpected %v", got)
}

// annotate attaches path and offset information to err, converting it to an
// *Error if necessary. An error that already carries a path is returned
// unchanged, so annotation happens once, at the top of a traversal.
func annotate(err error, path jpath.Expr, offset int64) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Path != "" {
			return e
		}
		// Metadata errors are cached and shared, so annotate a copy.
		cp := *e
		cp.Path = slices.Concat(path, e.member).String()
		if cp.Offset < 0 {
			cp.Offset = offset
		}
		return &cp
	}
	kind := KindStructuralMismatch
	var serr *token.SyntaxError
	if errors.As(err, &serr) {
		kind = KindSyntax
		if errors.Is(err, token.ErrTooDeep) {
			kind = KindDepthExceeded
		}
		offset = serr.Offset
	}
	return &Error{Kind: kind, Path: path.String(), Offset: offset, err: err}
}
