// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"encoding"
	"encoding/base64"
	"errors"
	"math"
	"reflect"

	"github.com/creachadair/jserial/token"
)

// RawValue holds the complete JSON text of a value. When read, it captures
// the input text verbatim; when written, its contents are copied to the
// output unchanged. An empty RawValue is written as null.
type RawValue []byte

// scalarBase provides the common methods of the built-in scalar converters.
type scalarBase struct{}

func (scalarBase) Shape() Shape     { return Scalar }
func (scalarBase) HandleNull() bool { return false }
func (scalarBase) builtin()         {}

type boolConverter struct{ scalarBase }

func (boolConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	b, err := r.Bool()
	if err != nil {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	return reflect.ValueOf(b).Convert(t), nil
}

func (boolConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	w.WriteBool(v.Bool())
	return nil
}

type intConverter struct{ scalarBase }

func (intConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.Number {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	n, err := r.Int64()
	if err != nil {
		return reflect.Value{}, wrapError(KindStructuralMismatch, t, err, "invalid integer %q", r.Raw())
	}
	v := reflect.New(t).Elem()
	if v.OverflowInt(n) {
		return reflect.Value{}, mismatchf(t, "value %d out of range", n)
	}
	v.SetInt(n)
	return v, nil
}

func (intConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	w.WriteInt(v.Int())
	return nil
}

type uintConverter struct{ scalarBase }

func (uintConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.Number {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	n, err := r.Uint64()
	if err != nil {
		return reflect.Value{}, wrapError(KindStructuralMismatch, t, err, "invalid unsigned integer %q", r.Raw())
	}
	v := reflect.New(t).Elem()
	if v.OverflowUint(n) {
		return reflect.Value{}, mismatchf(t, "value %d out of range", n)
	}
	v.SetUint(n)
	return v, nil
}

func (uintConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	w.WriteUint(v.Uint())
	return nil
}

type floatConverter struct{ scalarBase }

func (floatConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.Number {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	f, err := r.Float64()
	if err != nil {
		return reflect.Value{}, wrapError(KindStructuralMismatch, t, err, "invalid number %q", r.Raw())
	}
	v := reflect.New(t).Elem()
	if v.OverflowFloat(f) {
		return reflect.Value{}, mismatchf(t, "value %g out of range", f)
	}
	v.SetFloat(f)
	return v, nil
}

func (floatConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return mismatchf(v.Type(), "cannot encode %v", f)
	}
	w.WriteFloat(f, v.Type().Bits())
	return nil
}

type stringConverter struct{ scalarBase }

func (stringConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.String {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	s, err := r.String()
	if err != nil {
		return reflect.Value{}, wrapError(KindSyntax, t, err, "invalid string")
	}
	return reflect.ValueOf(s).Convert(t), nil
}

func (stringConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	w.WriteString(v.String())
	return nil
}

// bytesConverter converts byte slices as base64-encoded strings.
type bytesConverter struct{ scalarBase }

func (bytesConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.String {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	s, err := r.String()
	if err != nil {
		return reflect.Value{}, wrapError(KindSyntax, t, err, "invalid string")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return reflect.Value{}, wrapError(KindStructuralMismatch, t, err, "invalid base64")
	}
	return reflect.ValueOf(data).Convert(t), nil
}

func (bytesConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	w.WriteBytes(v.Bytes())
	return nil
}

// textConverter converts types that implement encoding.TextMarshaler and
// encoding.TextUnmarshaler as strings.
type textConverter struct{ scalarBase }

func (textConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	if r.Kind() != token.String {
		return reflect.Value{}, unexpectedToken(t, r.Kind())
	}
	s, err := r.String()
	if err != nil {
		return reflect.Value{}, wrapError(KindSyntax, t, err, "invalid string")
	}
	p := reflect.New(t)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		return reflect.Value{}, wrapError(KindStructuralMismatch, t, err, "invalid text")
	}
	return p.Elem(), nil
}

func (textConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return wrapError(KindStructuralMismatch, v.Type(), err, "marshal text")
	}
	w.WriteString(string(text))
	return nil
}

// rawConverter captures and emits RawValue text.
type rawConverter struct{ scalarBase }

func (rawConverter) HandleNull() bool { return true }

func (rawConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	raw, ok, err := r.RawValue()
	if err != nil {
		return reflect.Value{}, err
	} else if !ok {
		return reflect.Value{}, newErrorf(KindConverterContract, t, "value is not buffered")
	}
	return reflect.ValueOf(RawValue(raw)).Convert(t), nil
}

func (rawConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		w.WriteNull()
	} else {
		w.WriteRaw(v.Bytes())
	}
	return nil
}

// anyConverter reads values of empty interface type as generic values:
// map[string]any, []any, float64, string, bool, or nil.
// Non-nil interface values are written according to their dynamic type, so
// only nil reaches WriteScalar.
type anyConverter struct{ scalarBase }

func (anyConverter) ReadScalar(r *token.Reader, t reflect.Type) (reflect.Value, error) {
	v, err := readGeneric(r)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(t).Elem()
	if v != nil {
		out.Set(reflect.ValueOf(v))
	}
	return out, nil
}

func (anyConverter) WriteScalar(w *token.Writer, v reflect.Value) error {
	if !isNull(v) {
		return newErrorf(KindConverterContract, v.Type(), "dynamic value was not dispatched")
	}
	w.WriteNull()
	return nil
}

var errIncomplete = errors.New("incomplete value")

// readGeneric decodes the value starting at the current token of r. On
// success, r is positioned on the last token of the value.
func readGeneric(r *token.Reader) (any, error) {
	switch r.Kind() {
	case token.Null:
		return nil, nil
	case token.True, token.False:
		return r.Bool()
	case token.Number:
		return r.Float64()
	case token.String:
		return r.String()
	case token.StartArray:
		out := []any{}
		for {
			if err := readNext(r); err != nil {
				return nil, err
			}
			if r.Kind() == token.EndArray {
				return out, nil
			}
			v, err := readGeneric(r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	case token.StartObject:
		out := make(map[string]any)
		for {
			if err := readNext(r); err != nil {
				return nil, err
			}
			if r.Kind() == token.EndObject {
				return out, nil
			}
			key, err := r.String()
			if err != nil {
				return nil, err
			}
			if err := readNext(r); err != nil {
				return nil, err
			}
			v, err := readGeneric(r)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
	}
	return nil, unexpectedToken(nil, r.Kind())
}

func readNext(r *token.Reader) error {
	ok, err := r.Read()
	if err != nil {
		return err
	} else if !ok {
		return errIncomplete
	}
	return nil
}
