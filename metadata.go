// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/creachadair/jserial/internal/escape"
	"github.com/creachadair/jserial/jpath"
	"github.com/creachadair/jserial/token"
	"github.com/creachadair/mds/mapset"
	"go4.org/mem"
)

// TypeMetadata describes how values of one type are converted. Metadata are
// built on first use by a Serializer and shared by all its conversions; they
// are immutable except for the lazily-resolved property and element types
// and the learned property order.
type TypeMetadata struct {
	Type  reflect.Type
	Shape Shape

	// Properties are the properties of an Object, in declaration order.
	// Each property's Index is its position in this slice.
	Properties []*PropertyMetadata

	// Extension, if non-nil, is the property that receives unknown members
	// of an Object. It is also present in Properties.
	Extension *PropertyMetadata

	s        *Serializer
	conv     Converter
	err      error
	factory  func() reflect.Value // constructs an empty value; nil if none
	deref    *TypeMetadata        // for pointer types, the element metadata
	nullable bool                 // the zero value is written as null
	keys     *keyCodec            // for Map

	// Collection element type, resolved on first use.
	elemOnce sync.Once
	elemType reflect.Type
	elem     *TypeMetadata
	elemErr  error

	byName map[string]*PropertyMetadata
	byFold map[string]*PropertyMetadata // lower-cased names; only if case-insensitive

	// Properties in the order first seen in input. The cache is replaced
	// wholesale when a longer order is learned, and read without locking.
	sorted atomic.Pointer[[]*PropertyMetadata]
}

// Converter returns the converter for values of md's type.
func (md *TypeMetadata) Converter() Converter { return md.conv }

// HasFactory reports whether md can construct an empty value.
func (md *TypeMetadata) HasFactory() bool { return md.factory != nil }

// Element returns the metadata for the element type of an Array or Map.
func (md *TypeMetadata) Element() (*TypeMetadata, error) {
	md.elemOnce.Do(func() {
		if md.elemType == nil {
			md.elemErr = newErrorf(KindUnsupportedShape, md.Type, "%v has no element type", md.Shape)
			return
		}
		md.elem, md.elemErr = md.s.metadata(md.elemType)
	})
	return md.elem, md.elemErr
}

// Property returns the property with the given name, or nil.
func (md *TypeMetadata) Property(name string) *PropertyMetadata { return md.byName[name] }

// newValue constructs an empty value of md's type for reading.
func (md *TypeMetadata) newValue() (reflect.Value, error) {
	if md.factory == nil {
		return reflect.Value{}, newErrorf(KindNoFactory, md.Type, "cannot construct a value")
	}
	return md.factory(), nil
}

// lookup resolves the name of the property name token at r.
//
// It first tries the property the learned order predicts for the next
// ordinal, then falls back to an exact search by name, and finally to a
// case-insensitive search if that is enabled. It returns nil if the name does
// not match any property, along with the decoded name.
func (md *TypeMetadata) lookup(r *token.Reader, f *readFrame) (*PropertyMetadata, string, error) {
	if sp := md.sorted.Load(); sp != nil && f.ordinal < len(*sp) {
		if p := (*sp)[f.ordinal]; r.NameEquals(p.Name) {
			f.ordinal++
			f.learn(p)
			return p, p.Name, nil
		}
	}
	name, err := r.String()
	if err != nil {
		return nil, "", err
	}
	p := md.byName[name]
	if p == nil && md.byFold != nil {
		p = md.byFold[strings.ToLower(name)]
	}
	if p != nil {
		if sp := md.sorted.Load(); sp != nil {
			for i, q := range *sp {
				if q == p {
					f.ordinal = i + 1
					break
				}
			}
		}
		f.learn(p)
	}
	return p, name, nil
}

// learnOrder publishes seen as the learned property order, if it is longer
// than the order already known.
func (md *TypeMetadata) learnOrder(seen []*PropertyMetadata) {
	for {
		old := md.sorted.Load()
		if old != nil && len(*old) >= len(seen) {
			return
		}
		cp := append([]*PropertyMetadata(nil), seen...)
		if md.sorted.CompareAndSwap(old, &cp) {
			return
		}
	}
}

// orderComplete reports whether the learned order covers every property.
func (md *TypeMetadata) orderComplete() bool {
	sp := md.sorted.Load()
	return sp != nil && len(*sp) >= len(md.Properties)
}

// PropertyMetadata describes one property of an Object.
type PropertyMetadata struct {
	Name  string // the JSON name
	Index int    // position in the owner's Properties
	Type  reflect.Type

	IgnoreNullOnRead  bool // a null input value leaves the property unset
	IgnoreNullOnWrite bool // a null value is omitted from output

	// Ignored marks a disabled placeholder. A disabled property is never
	// written, and its value is skipped when read.
	Ignored bool

	owner  *TypeMetadata
	ext    bool   // requested as the extension sink
	quoted []byte // the escaped name, with quotes
	get    func(obj reflect.Value) reflect.Value
	set    func(obj, v reflect.Value)

	shouldWrite, shouldRead bool

	once sync.Once
	md   *TypeMetadata
	err  error
}

// Metadata returns the type metadata for the property's value, resolving it
// on first use.
func (p *PropertyMetadata) Metadata() (*TypeMetadata, error) {
	p.once.Do(func() { p.md, p.err = p.owner.s.metadata(p.Type) })
	return p.md, p.err
}

// ShouldSerialize reports whether p is written.
func (p *PropertyMetadata) ShouldSerialize() bool { return p.shouldWrite }

// ShouldDeserialize reports whether p is set when read.
func (p *PropertyMetadata) ShouldDeserialize() bool { return p.shouldRead }

func (p *PropertyMetadata) finish(opts *Options) {
	p.quoted = escape.AppendQuoted(nil, mem.S(p.Name))
	p.shouldRead = !p.Ignored && p.set != nil
	p.shouldWrite = !p.Ignored && p.get != nil
	if opts != nil && opts.IgnoreReadOnly && p.set == nil {
		p.shouldWrite = false
	}
	if opts != nil && opts.IgnoreNullValues {
		p.IgnoreNullOnRead, p.IgnoreNullOnWrite = true, true
	}
}

// metadata returns the metadata for t, building and caching it if necessary.
// Concurrent builders may race; the first to publish wins and the others
// adopt its result.
func (s *Serializer) metadata(t reflect.Type) (*TypeMetadata, error) {
	if v, ok := s.types.Load(t); ok {
		md := v.(*TypeMetadata)
		return md, md.err
	}
	md := s.build(t)
	v, loaded := s.types.LoadOrStore(t, md)
	if !loaded {
		s.log.Debug("built type metadata", "type", t, "shape", md.Shape)
	}
	md = v.(*TypeMetadata)
	return md, md.err
}

func (s *Serializer) build(t reflect.Type) *TypeMetadata {
	md := &TypeMetadata{Type: t, s: s}
	if reg, ok := s.custom.Load(t); ok {
		switch r := reg.(type) {
		case Converter:
			md.Shape, md.conv = Scalar, r
			md.nullable = isNullable(t)
		case *Builder:
			s.buildRegistered(md, r)
		}
		return md
	}

	if t.Kind() == reflect.Pointer {
		elem, err := s.metadata(t.Elem())
		if err != nil {
			md.err = err
			return md
		}
		md.Shape, md.conv, md.deref, md.nullable = elem.Shape, elem.conv, elem, true
		return md
	}

	shape, conv := classify(t)
	md.Shape, md.conv = shape, conv
	md.nullable = isNullable(t)
	switch shape {
	case Unsupported:
		md.err = newErrorf(KindUnsupportedShape, t, "cannot convert %v values", t.Kind())
	case Array:
		md.elemType = t.Elem()
		md.factory = func() reflect.Value { return reflect.MakeSlice(reflect.SliceOf(t.Elem()), 0, 0) }
		md.err = s.checkType(t.Elem(), jpath.Root(), mapset.New(t))
	case Map:
		md.elemType = t.Elem()
		md.keys = keyCodecFor(t.Key())
		md.factory = func() reflect.Value { return reflect.MakeMap(t) }
		md.err = s.checkType(t.Elem(), jpath.Root(), mapset.New(t))
	case Object:
		md.factory = func() reflect.Value { return reflect.New(t).Elem() }
		s.buildStruct(md)
	}
	return md
}

func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return false
}

// A structField is a candidate property of a struct type.
type structField struct {
	name   string
	typ    reflect.Type
	index  []int
	depth  int  // embedding depth; 0 for fields declared by the struct itself
	tagged bool // the name was given by a field tag
	opts   mapset.Set[string]
	ignore bool
}

// structFields returns the candidate properties of struct type t, in
// declaration order, with the fields of embedded structs without a tag name
// promoted in place.
//
// When several fields have the same name, the shallowest one wins. If more
// than one field remains at that depth, a tagged field wins if it is the only
// one; otherwise the name is ambiguous and all its fields are dropped.
func (s *Serializer) structFields(t reflect.Type) []structField {
	var fields []structField
	var add func(t reflect.Type, index []int)
	add = func(t reflect.Type, index []int) {
		for i := range t.NumField() {
			ft := t.Field(i)
			fidx := append(append([]int(nil), index...), i)
			tag, hasTag := ft.Tag.Lookup("json")
			name, rest, _ := strings.Cut(tag, ",")
			opts := mapset.New(strings.Split(rest, ",")...)

			if ft.Anonymous && name == "" && ft.Type.Kind() == reflect.Struct && !opts.Has("extension") {
				add(ft.Type, fidx)
				continue
			} else if !ft.IsExported() {
				continue
			}
			tagged := name != "" && tag != "-"
			if name == "" {
				name = s.opts.PropertyNaming.Apply(ft.Name)
			}
			if hasTag && tag == "-" {
				name = ft.Name
			}
			fields = append(fields, structField{
				name:   name,
				typ:    ft.Type,
				index:  fidx,
				depth:  len(index),
				tagged: tagged,
				opts:   opts,
				ignore: tag == "-",
			})
		}
	}
	add(t, nil)

	byName := make(map[string][]int)
	for i, f := range fields {
		byName[f.name] = append(byName[f.name], i)
	}
	keep := make([]bool, len(fields))
	for _, idx := range byName {
		if i, ok := dominantField(fields, idx); ok {
			keep[i] = true
		}
	}
	out := fields[:0]
	for i, f := range fields {
		if keep[i] {
			out = append(out, f)
		}
	}
	return out
}

// dominantField reports which of the fields at the given offsets, all of
// which share a name, defines the property.
func dominantField(fields []structField, idx []int) (int, bool) {
	if len(idx) == 1 {
		return idx[0], true
	}
	top := fields[idx[0]].depth
	for _, i := range idx[1:] {
		top = min(top, fields[i].depth)
	}
	best, count, tagged := -1, 0, 0
	for _, i := range idx {
		if fields[i].depth != top {
			continue
		}
		count++
		if fields[i].tagged {
			best = i
			tagged++
		} else if best < 0 {
			best = i
		}
	}
	if count == 1 || tagged == 1 {
		return best, true
	}
	return -1, false
}

// buildStruct populates the properties of md from the exported fields of its
// struct type.
//
// Field tags follow the usual convention:
//
//	json:"name,omitnull"  -- rename the property; omit nulls on write and ignore them on read
//	json:",extension"     -- collect unknown members into this map field
//	json:"-"              -- disable the property
func (s *Serializer) buildStruct(md *TypeMetadata) {
	for _, f := range s.structFields(md.Type) {
		fidx := f.index
		p := &PropertyMetadata{
			Name:              f.name,
			Type:              f.typ,
			IgnoreNullOnRead:  f.opts.Has("omitnull"),
			IgnoreNullOnWrite: f.opts.Has("omitnull"),
			Ignored:           f.ignore,
			ext:               f.opts.Has("extension"),
			get:               func(obj reflect.Value) reflect.Value { return obj.FieldByIndex(fidx) },
			set:               func(obj, v reflect.Value) { obj.FieldByIndex(fidx).Set(v) },
		}
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

// setExtension records p as the extension property of md.
func (s *Serializer) setExtension(md *TypeMetadata, p *PropertyMetadata) error {
	if md.Extension != nil {
		return newErrorf(KindExtensionTargetInvalid, md.Type,
			"multiple extension properties (%q and %q)", md.Extension.Name, p.Name)
	}
	if p.Type.Kind() != reflect.Map || p.Type.Key().Kind() != reflect.String {
		return newErrorf(KindExtensionTargetInvalid, md.Type,
			"extension property %q has type %v, want a map with string keys", p.Name, p.Type)
	}
	if p.get == nil || p.set == nil {
		return newErrorf(KindExtensionTargetInvalid, md.Type,
			"extension property %q needs both a getter and a setter", p.Name)
	}
	md.Extension = p
	return nil
}

// checkProperties fails md if the value type of an enabled property, or a
// type reachable from it, cannot be converted. Only types are examined;
// their metadata are still built on first use.
func (s *Serializer) checkProperties(md *TypeMetadata) {
	seen := mapset.New(md.Type)
	for _, p := range md.Properties {
		if !p.shouldRead && !p.shouldWrite {
			continue
		}
		at := jpath.Root()
		if p != md.Extension {
			at = at.Member(p.Name)
		}
		if err := s.checkType(p.Type, at, seen); err != nil {
			md.err = err
			return
		}
	}
}

// checkType reports an error if values of t, or of any type reachable from
// t through pointers, elements, and properties, cannot be converted. The
// error records at as the location of the failure.
func (s *Serializer) checkType(t reflect.Type, at jpath.Expr, seen mapset.Set[reflect.Type]) error {
	if seen.Has(t) {
		return nil
	}
	seen.Add(t)
	if reg, ok := s.custom.Load(t); ok {
		if b, ok := reg.(*Builder); ok {
			for _, p := range b.props {
				if p.Ignored || (p.get == nil && p.set == nil) {
					continue
				}
				if err := s.checkType(p.Type, at.Member(p.Name), seen); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if t.Kind() == reflect.Pointer {
		return s.checkType(t.Elem(), at, seen)
	}

	switch shape, _ := classify(t); shape {
	case Unsupported:
		e := newErrorf(KindUnsupportedShape, t, "cannot convert %v values", t.Kind())
		e.member = at
		return e
	case Array, Map:
		return s.checkType(t.Elem(), at, seen)
	case Object:
		for _, f := range s.structFields(t) {
			if f.ignore {
				continue
			}
			next := at
			if !f.opts.Has("extension") {
				next = at.Member(f.name)
			}
			if err := s.checkType(f.typ, next, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (md *TypeMetadata) addProperty(p *PropertyMetadata) {
	p.owner = md
	p.Index = len(md.Properties)
	md.Properties = append(md.Properties, p)
}

// finishObject builds the name indexes of md after its properties are set.
func (s *Serializer) finishObject(md *TypeMetadata) {
	md.byName = make(map[string]*PropertyMetadata, len(md.Properties))
	if s.opts.CaseInsensitive {
		md.byFold = make(map[string]*PropertyMetadata, len(md.Properties))
	}
	for _, p := range md.Properties {
		p.finish(&s.opts)
		if p == md.Extension {
			continue
		}
		md.byName[p.Name] = p
		if md.byFold != nil {
			fold := strings.ToLower(p.Name)
			if _, ok := md.byFold[fold]; !ok {
				md.byFold[fold] = p
			}
		}
	}
	s.checkProperties(md)
}
