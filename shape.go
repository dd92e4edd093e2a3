// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"encoding"
	"reflect"
	"strconv"
)

// Shape classifies how values of a type are converted.
type Shape byte

// Constants defining the valid Shape values.
const (
	Unsupported Shape = iota // values of the type cannot be converted
	Scalar                   // converted atomically from a completely buffered value
	Object                   // a JSON object with named properties
	Array                    // a JSON array of elements
	Map                      // a JSON object with keys drawn from a key type
)

var shapeStr = [...]string{
	Unsupported: "unsupported",
	Scalar:      "scalar",
	Object:      "object",
	Array:       "array",
	Map:         "map",
}

func (s Shape) String() string {
	if int(s) < len(shapeStr) {
		return shapeStr[s]
	}
	return "Shape(" + strconv.Itoa(int(s)) + ")"
}

var (
	rawValueType        = reflect.TypeFor[RawValue]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// isText reports whether t round-trips through its text encoding.
func isText(t reflect.Type) bool {
	return t.Implements(textMarshalerType) && reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// classify reports the shape and built-in converter for t. Pointer types are
// classified by the caller in terms of their element type.
func classify(t reflect.Type) (Shape, Converter) {
	switch {
	case t == rawValueType:
		return Scalar, rawConverter{}
	case isText(t):
		return Scalar, textConverter{}
	}
	switch t.Kind() {
	case reflect.Bool:
		return Scalar, boolConverter{}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar, intConverter{}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Scalar, uintConverter{}
	case reflect.Float32, reflect.Float64:
		return Scalar, floatConverter{}
	case reflect.String:
		return Scalar, stringConverter{}
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return Scalar, anyConverter{}
		}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !isText(t.Elem()) {
			return Scalar, bytesConverter{}
		}
		return Array, arrayConverter{}
	case reflect.Array:
		return Array, arrayConverter{}
	case reflect.Map:
		if keyCodecFor(t.Key()) != nil {
			return Map, mapConverter{}
		}
	case reflect.Struct:
		return Object, objectConverter{}
	}
	return Unsupported, nil
}

// A keyCodec converts map keys to and from property names.
type keyCodec struct {
	parse  func(string) (reflect.Value, error)
	format func(reflect.Value) (string, error)
}

func keyCodecFor(t reflect.Type) *keyCodec {
	if t.Kind() == reflect.String {
		return &keyCodec{
			parse:  func(s string) (reflect.Value, error) { return reflect.ValueOf(s).Convert(t), nil },
			format: func(v reflect.Value) (string, error) { return v.String(), nil },
		}
	}
	if isText(t) {
		return &keyCodec{
			parse: func(s string) (reflect.Value, error) {
				p := reflect.New(t)
				if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
					return reflect.Value{}, err
				}
				return p.Elem(), nil
			},
			format: func(v reflect.Value) (string, error) {
				text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
				return string(text), err
			},
		}
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &keyCodec{
			parse: func(s string) (reflect.Value, error) {
				n, err := strconv.ParseInt(s, 10, t.Bits())
				if err != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(n).Convert(t), nil
			},
			format: func(v reflect.Value) (string, error) { return strconv.FormatInt(v.Int(), 10), nil },
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &keyCodec{
			parse: func(s string) (reflect.Value, error) {
				n, err := strconv.ParseUint(s, 10, t.Bits())
				if err != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(n).Convert(t), nil
			},
			format: func(v reflect.Value) (string, error) { return strconv.FormatUint(v.Uint(), 10), nil },
		}
	}
	return nil
}

// isNull reports whether v is written as a JSON null.
func isNull(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
