// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"fmt"
	"reflect"

	"github.com/creachadair/jserial/token"
	"github.com/creachadair/mds/mapset"
)

// A Builder describes the properties of an object type registered with
// Serializer.Register. Methods of a Builder panic if they are misused, for
// example by defining the same property name twice.
type Builder struct {
	t       reflect.Type
	factory func() reflect.Value
	props   []*PropertyMetadata
	names   mapset.Set[string]
}

// Factory sets the function used to construct an empty value when reading.
// A type without a factory can be written but not read.
func (b *Builder) Factory(f func() reflect.Value) *Builder { b.factory = f; return b }

// Property defines a property with the given JSON name and value type. The
// order in which properties are defined is the order they are written.
func (b *Builder) Property(name string, t reflect.Type) *PropertyBuilder {
	if name == "" {
		panic("jserial: empty property name")
	} else if b.names.Has(name) {
		panic(fmt.Sprintf("jserial: duplicate property %q for %v", name, b.t))
	}
	b.names.Add(name)
	p := &PropertyMetadata{Name: name, Type: t}
	b.props = append(b.props, p)
	return &PropertyBuilder{p: p}
}

// Field defines a property with the given JSON name, whose value is the named
// field of the registered struct type.
func (b *Builder) Field(name, field string) *PropertyBuilder {
	if b.t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("jserial: %v is not a struct", b.t))
	}
	ft, ok := b.t.FieldByName(field)
	if !ok || !ft.IsExported() {
		panic(fmt.Sprintf("jserial: %v has no exported field %q", b.t, field))
	}
	idx := ft.Index
	return b.Property(name, ft.Type).
		Get(func(obj reflect.Value) reflect.Value { return obj.FieldByIndex(idx) }).
		Set(func(obj, v reflect.Value) { obj.FieldByIndex(idx).Set(v) })
}

// A PropertyBuilder configures one property of a Builder.
type PropertyBuilder struct{ p *PropertyMetadata }

// Get sets the accessor used to fetch the property value when writing. A
// property without a getter is not written.
func (pb *PropertyBuilder) Get(f func(obj reflect.Value) reflect.Value) *PropertyBuilder {
	pb.p.get = f
	return pb
}

// Set sets the accessor used to store the property value when reading. A
// property without a setter is skipped when read.
func (pb *PropertyBuilder) Set(f func(obj, v reflect.Value)) *PropertyBuilder {
	pb.p.set = f
	return pb
}

// IgnoreNull sets whether null values are ignored when read and omitted when
// written.
func (pb *PropertyBuilder) IgnoreNull(onRead, onWrite bool) *PropertyBuilder {
	pb.p.IgnoreNullOnRead, pb.p.IgnoreNullOnWrite = onRead, onWrite
	return pb
}

// Ignore disables the property. It keeps its position among the properties,
// but is never written, and its value is skipped when read.
func (pb *PropertyBuilder) Ignore() *PropertyBuilder { pb.p.Ignored = true; return pb }

// Extension marks the property as the extension sink of the object. Its type
// must be a map with string keys.
func (pb *PropertyBuilder) Extension() *PropertyBuilder { pb.p.ext = true; return pb }

// Register defines the object shape of t using build. It reports an error if
// t is already registered or has already been used by s.
func (s *Serializer) Register(t reflect.Type, build func(*Builder)) error {
	b := &Builder{t: t, names: mapset.New[string]()}
	build(b)
	return s.register(t, b)
}

// RegisterConverter installs c as the converter for values of type t.
func (s *Serializer) RegisterConverter(t reflect.Type, c ScalarConverter) error {
	return s.register(t, c)
}

func (s *Serializer) register(t reflect.Type, v any) error {
	if _, ok := s.types.Load(t); ok {
		return fmt.Errorf("jserial: type %v is already in use", t)
	}
	if _, loaded := s.custom.LoadOrStore(t, v); loaded {
		return fmt.Errorf("jserial: type %v is already registered", t)
	}
	return nil
}

// RegisterScalar installs a converter for values of type T built from the
// given functions. Either function may be nil, if values of T are only read
// or only written.
func RegisterScalar[T any](s *Serializer, read func(*token.Reader) (T, error), write func(*token.Writer, T) error) error {
	var c ScalarFuncs
	if read != nil {
		c.Read = func(r *token.Reader, t reflect.Type) (reflect.Value, error) {
			v, err := read(r)
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.New(t).Elem()
			out.Set(reflect.ValueOf(&v).Elem())
			return out, nil
		}
	}
	if write != nil {
		c.Write = func(w *token.Writer, v reflect.Value) error {
			return write(w, v.Interface().(T))
		}
	}
	return s.RegisterConverter(reflect.TypeFor[T](), c)
}

// buildRegistered populates md from the definition recorded by b.
func (s *Serializer) buildRegistered(md *TypeMetadata, b *Builder) {
	md.Shape, md.conv = Object, objectConverter{}
	md.factory = b.factory
	md.nullable = isNullable(md.Type)
	for _, p := range b.props {
		if p.ext {
			if err := s.setExtension(md, p); err != nil {
				md.err = err
				return
			}
		}
		md.addProperty(p)
	}
	s.finishObject(md)
}
