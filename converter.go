// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"fmt"
	"reflect"

	"github.com/creachadair/jserial/token"
)

// A Converter converts values of one shape between Go and JSON. The converters
// for objects, arrays, and maps are built in; custom converters implement
// ScalarConverter.
type Converter interface {
	Shape() Shape
}

// A ScalarConverter converts a value atomically. When ReadScalar is called,
// the complete value is buffered and the reader is positioned on its first
// token. ReadScalar must leave the reader on the last token of the value:
// the same token for a simple value, or the matching end token for an object
// or array. WriteScalar must write exactly one complete value.
//
// Custom scalar converters are checked for these rules on every call, and a
// violation is reported as a KindConverterContract error.
type ScalarConverter interface {
	Converter
	ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error)
	WriteScalar(w *token.Writer, v reflect.Value) error

	// HandleNull reports whether the converter reads null tokens itself.
	// Otherwise, null is read as the zero value without calling ReadScalar.
	HandleNull() bool
}

// compositeConverter is implemented by the resumable converters for objects,
// arrays, and maps. Each operates on the current frame of the stack, and
// reports false with a nil error if it must suspend for more input (reading)
// or for the output to drain (writing).
type compositeConverter interface {
	Converter
	read(st *readStack, r *token.Reader) (bool, error)
	write(st *writeStack, w *token.Writer) (bool, error)
}

// builtin is implemented by the converters defined in this package. Their
// token consumption is only checked if Options.VerifyConverters is set.
type builtin interface{ builtin() }

func isBuiltin(c Converter) bool { _, ok := c.(builtin); return ok }

// ScalarFuncs implements ScalarConverter with functions.
type ScalarFuncs struct {
	Read      func(r *token.Reader, t reflect.Type) (reflect.Value, error)
	Write     func(w *token.Writer, v reflect.Value) error
	ReadsNull bool
}

// Shape implements part of ScalarConverter. It always returns Scalar.
func (ScalarFuncs) Shape() Shape { return Scalar }

// ReadScalar implements part of ScalarConverter.
func (f ScalarFuncs) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if f.Read == nil {
		return reflect.Value{}, fmt.Errorf("reading %v is not supported", t)
	}
	return f.Read(r, t)
}

// WriteScalar implements part of ScalarConverter.
func (f ScalarFuncs) WriteScalar(w *token.Writer, v reflect.Value) error {
	if f.Write == nil {
		return fmt.Errorf("writing %v is not supported", v.Type())
	}
	return f.Write(w, v)
}

// HandleNull implements part of ScalarConverter.
func (f ScalarFuncs) HandleNull() bool { return f.ReadsNull }

// readAhead reads the first token of the next value to be converted by md.
// If md is Scalar and the value is an object or array, readAhead also checks
// that the entire value is buffered, then restores the reader to the first
// token of the value. It reports false with a nil error if more input is
// needed, and then the position of r is unchanged.
func readAhead(r *token.Reader, md *TypeMetadata) (bool, error) {
	before := r.Snapshot()
	if ok, err := r.Read(); err != nil || !ok {
		return false, err
	}
	if md.Shape != Scalar || !r.Kind().IsStart() {
		return true, nil
	}
	first := r.Snapshot()
	ok, err := r.TrySkip()
	if err != nil || !ok {
		r.Rewind(before)
		return false, err
	}
	r.Rewind(first)
	return true, nil
}

// readCheck records the reader state at the start of a value, for checking
// the token consumption of its converter.
type readCheck struct {
	kind   token.Kind
	depth  int
	offset int64
}

func newReadCheck(r *token.Reader) readCheck {
	return readCheck{kind: r.Kind(), depth: r.Depth(), offset: r.Offset()}
}

// verify reports an error if r is not positioned on the last token of the
// value that began at rc.
func (rc readCheck) verify(r *token.Reader, t reflect.Type) error {
	if rc.kind.IsStart() {
		want := token.EndObject
		if rc.kind == token.StartArray {
			want = token.EndArray
		}
		if r.Kind() != want || r.Depth() != rc.depth || r.Offset() <= rc.offset {
			return newErrorf(KindConverterContract, t,
				"read of %v ended at %v depth %d, want %v depth %d", rc.kind, r.Kind(), r.Depth(), want, rc.depth)
		}
		return nil
	}
	if r.Kind() != rc.kind || r.Offset() != rc.offset {
		return newErrorf(KindConverterContract, t,
			"read of %v consumed tokens through offset %d", rc.kind, r.Offset())
	}
	return nil
}

// verifyWrite reports an error if the depth of w is not depth.
func verifyWrite(w *token.Writer, depth int, t reflect.Type) error {
	if w.Depth() != depth {
		return newErrorf(KindConverterContract, t, "write ended at depth %d, want %d", w.Depth(), depth)
	}
	return nil
}
