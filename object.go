// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"reflect"
	"slices"
	"strings"

	"github.com/creachadair/jserial/token"
)

// objectConverter converts struct and registered object types, property by
// property.
type objectConverter struct{}

func (objectConverter) Shape() Shape { return Object }
func (objectConverter) builtin()     {}

func (objectConverter) read(st *readStack, r *token.Reader) (bool, error) {
	f := st.cur
	md := f.md
	if !f.started {
		if r.Kind() != token.StartObject {
			return false, unexpectedToken(md.Type, r.Kind())
		}
		v, err := md.newValue()
		if err != nil {
			return false, err
		}
		f.value = v
		f.started = true
	}

	for {
		if !f.nameRead {
			if ok, err := r.Read(); err != nil || !ok {
				return false, err
			}
			if r.Kind() == token.EndObject {
				break
			}
			f.nameRead = true
		}
		if !f.nameDone {
			p, name, err := md.lookup(r, f)
			if err != nil {
				return false, wrapError(KindSyntax, md.Type, err, "invalid property name")
			}
			f.prop, f.name, f.nameDone = p, name, true

			switch {
			case p == nil && md.Extension == nil, p != nil && !p.ShouldDeserialize():
				if ok, err := r.SkipValue(); err != nil || !ok {
					// Leave the name resolved, and skip on resumption.
					f.prop = skipProperty
					return false, err
				}
				f.endMember()
				continue
			case p == nil:
				f.ext = true
				f.elem, err = md.Extension.elementMetadata()
			default:
				f.elem, err = p.Metadata()
			}
			if err != nil {
				return false, err
			}
		} else if f.prop == skipProperty {
			if ok, err := r.SkipValue(); err != nil || !ok {
				return false, err
			}
			f.endMember()
			continue
		}

		if !f.valueRead {
			if ok, err := readAhead(r, f.elem); err != nil || !ok {
				return false, err
			}
			f.valueRead = true
			if r.Kind() == token.Null && !f.ext && f.prop.IgnoreNullOnRead {
				f.endMember()
				continue
			}
		}

		v, ok, err := st.readValue(r, f.elem)
		if err != nil || !ok {
			return false, err
		}
		if f.ext {
			if err := setExtension(f.value, md.Extension, f.name, v); err != nil {
				return false, err
			}
		} else {
			f.prop.set(f.value, v)
		}
		f.endMember()
	}

	f.ended = true
	if len(f.seen) > 0 {
		md.learnOrder(f.seen)
	}
	return true, nil
}

// skipProperty marks a frame whose current member is being skipped.
var skipProperty = new(PropertyMetadata)

// elementMetadata returns the element metadata of an extension map.
func (p *PropertyMetadata) elementMetadata() (*TypeMetadata, error) {
	md, err := p.Metadata()
	if err != nil {
		return nil, err
	}
	return md.Element()
}

// setExtension adds name: v to the extension map of obj, creating the map if
// it is nil.
func setExtension(obj reflect.Value, ext *PropertyMetadata, name string, v reflect.Value) error {
	m := ext.get(obj)
	if m.IsNil() {
		m = reflect.MakeMap(ext.Type)
		ext.set(obj, m)
	}
	key := reflect.ValueOf(name).Convert(ext.Type.Key())
	m.SetMapIndex(key, v)
	return nil
}

func (objectConverter) write(st *writeStack, w *token.Writer) (bool, error) {
	f := st.cur
	md := f.md
	if !f.started {
		w.WriteStart(token.StartObject)
		f.started = true
	}

	for f.ordinal < len(md.Properties) {
		p := md.Properties[f.ordinal]
		if !p.ShouldSerialize() {
			f.ordinal++
			continue
		}
		if p == md.Extension {
			if ok, err := st.writeExtension(w, p); err != nil || !ok {
				return false, err
			}
			f.ordinal++
			continue
		}

		pmd, err := p.Metadata()
		if err != nil {
			return false, err
		}
		v := p.get(f.value)
		if !f.nameDone {
			if p.IgnoreNullOnWrite && isNull(v) {
				f.ordinal++
				continue
			}
			if st.full(w) {
				return false, nil
			}
			w.WriteEscapedName(p.quoted)
			f.nameDone = true
		}
		if ok, err := st.writeValue(w, pmd, v); err != nil || !ok {
			return false, err
		}
		f.nameDone = false
		f.ordinal++
	}

	w.WriteEnd(token.EndObject)
	f.ended = true
	return true, nil
}

// writeExtension writes the members of the extension map p of the current
// object, in key order. The members are written inline, as properties of
// the enclosing object, except those whose keys name declared properties.
func (st *writeStack) writeExtension(w *token.Writer, p *PropertyMetadata) (bool, error) {
	f := st.cur
	if f.keys == nil {
		m := p.get(f.value)
		if isNull(m) || m.Len() == 0 {
			return true, nil
		}
		// Keys that name declared properties are not written.
		f.keys = slices.DeleteFunc(m.MapKeys(), func(k reflect.Value) bool {
			_, ok := f.md.byName[k.String()]
			return ok
		})
		slices.SortFunc(f.keys, func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) })
		f.names = make([]string, len(f.keys))
		for i, k := range f.keys {
			f.names[i] = k.String()
		}
		f.index = 0
	}
	emd, err := p.elementMetadata()
	if err != nil {
		return false, err
	}
	m := p.get(f.value)
	for f.index < len(f.keys) {
		if !f.nameDone {
			if st.full(w) {
				return false, nil
			}
			w.WriteName(f.names[f.index])
			f.nameDone = true
		}
		if ok, err := st.writeValue(w, emd, m.MapIndex(f.keys[f.index])); err != nil || !ok {
			return false, err
		}
		f.nameDone = false
		f.index++
	}
	f.keys, f.names, f.index = nil, nil, 0
	return true, nil
}
