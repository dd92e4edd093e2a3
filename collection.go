// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"reflect"
	"slices"
	"strings"

	"github.com/creachadair/jserial/token"
)

// arrayConverter converts slices and arrays element by element. Elements are
// accumulated in a slice, which is copied into an array value when the end of
// the input array is reached.
type arrayConverter struct{}

func (arrayConverter) Shape() Shape { return Array }
func (arrayConverter) builtin()     {}

func (arrayConverter) read(st *readStack, r *token.Reader) (bool, error) {
	f := st.cur
	md := f.md
	if !f.started {
		if r.Kind() != token.StartArray {
			return false, unexpectedToken(md.Type, r.Kind())
		}
		v, err := md.newValue()
		if err != nil {
			return false, err
		}
		elem, err := md.Element()
		if err != nil {
			return false, err
		}
		f.value, f.elem = v, elem
		f.started = true
	}

	for {
		if !f.valueRead {
			if ok, err := readAhead(r, f.elem); err != nil || !ok {
				return false, err
			}
			if r.Kind() == token.EndArray {
				break
			}
			f.valueRead = true
		}
		v, ok, err := st.readValue(r, f.elem)
		if err != nil || !ok {
			return false, err
		}
		if md.Type.Kind() == reflect.Array && f.count >= md.Type.Len() {
			return false, mismatchf(md.Type, "too many elements (max %d)", md.Type.Len())
		}
		f.value = reflect.Append(f.value, v)
		f.count++
		f.valueRead = false
	}

	f.ended = true
	if md.Type.Kind() == reflect.Array {
		arr := reflect.New(md.Type).Elem()
		reflect.Copy(arr, f.value)
		f.value = arr
	} else if f.value.Type() != md.Type {
		f.value = f.value.Convert(md.Type)
	}
	return true, nil
}

func (arrayConverter) write(st *writeStack, w *token.Writer) (bool, error) {
	f := st.cur
	md := f.md
	elem, err := md.Element()
	if err != nil {
		return false, err
	}
	if !f.started {
		w.WriteStart(token.StartArray)
		f.started = true
	}
	for f.index < f.value.Len() {
		if ok, err := st.writeValue(w, elem, f.value.Index(f.index)); err != nil || !ok {
			return false, err
		}
		f.index++
	}
	w.WriteEnd(token.EndArray)
	f.ended = true
	return true, nil
}

// mapConverter converts maps as objects whose property names are the keys.
type mapConverter struct{}

func (mapConverter) Shape() Shape { return Map }
func (mapConverter) builtin()     {}

func (mapConverter) read(st *readStack, r *token.Reader) (bool, error) {
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
	elem, err := md.Element()
	if err != nil {
		return false, err
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
			name, err := r.String()
			if err != nil {
				return false, wrapError(KindSyntax, md.Type, err, "invalid key")
			}
			name = md.s.opts.KeyNaming.Apply(name)
			key, err := md.keys.parse(name)
			if err != nil {
				return false, wrapError(KindStructuralMismatch, md.Type, err, "invalid key %q", name)
			}
			f.name, f.key, f.nameDone = name, key, true
		}
		if !f.valueRead {
			if ok, err := readAhead(r, elem); err != nil || !ok {
				return false, err
			}
			f.valueRead = true
		}
		v, ok, err := st.readValue(r, elem)
		if err != nil || !ok {
			return false, err
		}
		f.value.SetMapIndex(f.key, v)
		f.endMember()
	}
	f.ended = true
	return true, nil
}

func (mapConverter) write(st *writeStack, w *token.Writer) (bool, error) {
	f := st.cur
	md := f.md
	elem, err := md.Element()
	if err != nil {
		return false, err
	}
	if !f.started {
		if err := f.sortKeys(md); err != nil {
			return false, err
		}
		w.WriteStart(token.StartObject)
		f.started = true
	}
	for f.index < len(f.keys) {
		if !f.nameDone {
			if st.full(w) {
				return false, nil
			}
			w.WriteName(f.names[f.index])
			f.nameDone = true
		}
		if ok, err := st.writeValue(w, elem, f.value.MapIndex(f.keys[f.index])); err != nil || !ok {
			return false, err
		}
		f.nameDone = false
		f.index++
	}
	w.WriteEnd(token.EndObject)
	f.ended = true
	return true, nil
}

// sortKeys records the keys of the current map in the order of their
// formatted names, so that output is deterministic and can be resumed by
// position.
func (f *writeFrame) sortKeys(md *TypeMetadata) error {
	type entry struct {
		key  reflect.Value
		name string
	}
	var entries []entry
	iter := f.value.MapRange()
	for iter.Next() {
		name, err := md.keys.format(iter.Key())
		if err != nil {
			return wrapError(KindStructuralMismatch, md.Type, err, "invalid key")
		}
		entries = append(entries, entry{iter.Key(), md.s.opts.KeyNaming.Apply(name)})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.name, b.name) })
	f.keys = make([]reflect.Value, len(entries))
	f.names = make([]string, len(entries))
	for i, e := range entries {
		f.keys[i], f.names[i] = e.key, e.name
	}
	return nil
}
