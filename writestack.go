// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"reflect"

	"github.com/creachadair/jserial/jpath"
	"github.com/creachadair/jserial/token"
)

// A writeFrame records the progress of writing one object, array, or map.
type writeFrame struct {
	md    *TypeMetadata
	value reflect.Value
	depth int // writer depth before the start token

	started  bool // the start token has been written
	nameDone bool // the name of the current member has been written
	ended    bool // the end token has been written

	ordinal int             // next property (objects)
	index   int             // next element or map entry
	keys    []reflect.Value // map keys or extension keys, in output order
	names   []string        // formatted names of keys
}

func (f *writeFrame) reset(md *TypeMetadata, v reflect.Value, depth int) {
	*f = writeFrame{md: md, value: v, depth: depth}
}

// A writeStack is the explicit continuation of a suspended write. It follows
// the same replay discipline as a readStack.
type writeStack struct {
	s         *Serializer
	frames    []*writeFrame
	cur       *writeFrame
	active    int
	replay    int
	verify    bool
	threshold int // if positive, suspend when more output is pending
	maxDepth  int // if positive, the maximum nesting depth
}

func (st *writeStack) push(md *TypeMetadata, v reflect.Value, depth int) bool {
	if st.replay > 0 {
		st.cur = st.frames[st.active]
		st.active++
		st.replay--
		return false
	}
	if st.active == len(st.frames) {
		st.frames = append(st.frames, new(writeFrame))
	}
	st.cur = st.frames[st.active]
	st.cur.reset(md, v, depth)
	st.active++
	return true
}

func (st *writeStack) pop(ok bool) {
	st.active--
	if !ok {
		st.replay++
	}
	if st.active > 0 {
		st.cur = st.frames[st.active-1]
	} else {
		st.cur = nil
	}
}

// full reports whether the pending output exceeds the flush threshold.
func (st *writeStack) full(w *token.Writer) bool {
	return st.threshold > 0 && w.Pending() > st.threshold
}

// path returns the document path of the value being written.
func (st *writeStack) path() jpath.Expr {
	p := jpath.Root()
	for _, f := range st.frames[:st.active] {
		if !f.started || f.ended {
			continue
		}
		switch f.md.Shape {
		case Object:
			if f.keys != nil && f.index < len(f.names) {
				p = p.Member(f.names[f.index])
			} else if f.ordinal < len(f.md.Properties) {
				p = p.Member(f.md.Properties[f.ordinal].Name)
			}
		case Map:
			if f.index < len(f.names) {
				p = p.Member(f.names[f.index])
			}
		case Array:
			p = p.Index(f.index)
		}
	}
	return p
}

// writeValue writes v, whose static type is described by md. Interface
// values are written according to their dynamic type. For an object, array,
// or map, it may return false with a nil error to suspend.
func (st *writeStack) writeValue(w *token.Writer, md *TypeMetadata, v reflect.Value) (bool, error) {
	if st.replay == 0 && st.full(w) {
		return false, nil
	}
	if st.replay == 0 {
		for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
			v = v.Elem()
			dmd, err := st.s.metadata(v.Type())
			if err != nil {
				return false, err
			}
			md = dmd
		}
		if isNull(v) {
			w.WriteNull()
			return true, nil
		}
		for md.deref != nil {
			md, v = md.deref, v.Elem()
			if isNull(v) {
				w.WriteNull()
				return true, nil
			}
		}
	} else {
		// Resuming: the retained frame holds the value.
		md = st.frames[st.active].md
	}

	switch c := md.conv.(type) {
	case ScalarConverter:
		depth := w.Depth()
		if err := c.WriteScalar(w, v); err != nil {
			return false, err
		}
		if st.verify || !isBuiltin(c) {
			if err := verifyWrite(w, depth, md.Type); err != nil {
				return false, err
			}
		}
		return true, nil

	case compositeConverter:
		if st.push(md, v, w.Depth()) && st.maxDepth > 0 && w.Depth() >= st.maxDepth {
			return false, newErrorf(KindDepthExceeded, md.Type, "maximum depth %d exceeded", st.maxDepth)
		}
		ok, err := c.write(st, w)
		if err != nil {
			return false, err
		}
		if ok && st.verify {
			if err := verifyWrite(w, st.cur.depth, md.Type); err != nil {
				return false, err
			}
		}
		st.pop(ok)
		return ok, nil
	}
	return false, newErrorf(KindUnsupportedShape, md.Type, "no converter")
}
