// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"reflect"

	"github.com/creachadair/jserial/jpath"
	"github.com/creachadair/jserial/token"
)

// A readFrame records the progress of reading one object, array, or map.
// The flags advance monotonically within one property or element, so that a
// converter resumed after suspension skips the steps it already completed.
type readFrame struct {
	md    *TypeMetadata
	value reflect.Value // the value under construction
	check readCheck     // reader state at the start token

	started   bool // the start token has been consumed
	nameRead  bool // the next property name or end token has been read
	nameDone  bool // the property name has been resolved
	valueRead bool // the first token of the value has been read ahead
	ended     bool // the end token has been consumed

	prop *PropertyMetadata // the current property, if known
	ext  bool              // the current member goes to the extension
	name string            // the current property name or map key
	key  reflect.Value     // the current map key
	elem *TypeMetadata     // metadata for the current value

	count   int                 // elements completed (arrays)
	ordinal int                 // predicted position in the learned order
	seen    []*PropertyMetadata // properties in input order, if learning
}

func (f *readFrame) reset(md *TypeMetadata) {
	*f = readFrame{md: md, seen: f.seen[:0]}
}

// endMember clears the per-member progress of f.
func (f *readFrame) endMember() {
	f.nameRead, f.nameDone, f.valueRead = false, false, false
	f.prop, f.ext, f.name, f.elem = nil, false, "", nil
	f.key = reflect.Value{}
}

// learn records that p was seen, if the owner's property order is not yet
// fully known.
func (f *readFrame) learn(p *PropertyMetadata) {
	if f.md.orderComplete() {
		return
	}
	for _, q := range f.seen {
		if q == p {
			return
		}
	}
	f.seen = append(f.seen, p)
}

// A readStack is the explicit continuation of a suspended read.
//
// Frames [0, active) are in progress. When a read suspends, each converter
// returns false and pops its frame without discarding it; the replay count
// records how many frames above active are retained. On resumption, push
// reuses retained frames in order until replay is exhausted, so each
// converter resumes from the progress recorded in its frame.
type readStack struct {
	s      *Serializer
	frames []*readFrame
	cur    *readFrame
	active int
	replay int
	verify bool
}

// push enters a frame for a value of md. It reports whether the frame is
// fresh (true) or a retained frame being resumed (false).
func (st *readStack) push(md *TypeMetadata) bool {
	if st.replay > 0 {
		st.cur = st.frames[st.active]
		st.active++
		st.replay--
		return false
	}
	if st.active == len(st.frames) {
		st.frames = append(st.frames, new(readFrame))
	}
	st.cur = st.frames[st.active]
	st.cur.reset(md)
	st.active++
	return true
}

// pop leaves the current frame. If ok is false, the frame is retained for
// replay.
func (st *readStack) pop(ok bool) {
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

// path returns the document path of the value being read.
func (st *readStack) path() jpath.Expr {
	p := jpath.Root()
	for _, f := range st.frames[:st.active] {
		switch f.md.Shape {
		case Object, Map:
			if f.nameDone {
				p = p.Member(f.name)
			}
		case Array:
			if f.started && !f.ended {
				p = p.Index(f.count)
			}
		}
	}
	return p
}

// readValue converts the value whose first token is current in r. For an
// object, array, or map, it may return false with a nil error to suspend.
// On error, the frames are left in place so the caller can report the path.
func (st *readStack) readValue(r *token.Reader, md *TypeMetadata) (reflect.Value, bool, error) {
	if md.deref != nil {
		if r.Kind() == token.Null && st.replay == 0 {
			return reflect.Zero(md.Type), true, nil
		}
		v, ok, err := st.readValue(r, md.deref)
		if err != nil || !ok {
			return reflect.Value{}, ok, err
		}
		ptr := reflect.New(md.deref.Type)
		ptr.Elem().Set(v)
		return ptr, true, nil
	}

	switch c := md.conv.(type) {
	case ScalarConverter:
		if r.Kind() == token.Null && !c.HandleNull() {
			return reflect.Zero(md.Type), true, nil
		}
		check := newReadCheck(r)
		v, err := c.ReadScalar(r, md.Type)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if st.verify || !isBuiltin(c) {
			if err := check.verify(r, md.Type); err != nil {
				return reflect.Value{}, false, err
			}
		}
		if !v.IsValid() || !v.Type().AssignableTo(md.Type) {
			return reflect.Value{}, false, newErrorf(KindConverterContract, md.Type, "converter returned %v", v)
		}
		return v, true, nil

	case compositeConverter:
		if st.replay == 0 && r.Kind() == token.Null {
			return reflect.Zero(md.Type), true, nil
		}
		if st.push(md) {
			st.cur.check = newReadCheck(r)
		}
		ok, err := c.read(st, r)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if ok && st.verify {
			if err := st.cur.check.verify(r, md.Type); err != nil {
				return reflect.Value{}, false, err
			}
		}
		v := st.cur.value
		st.pop(ok)
		return v, ok, nil
	}
	return reflect.Value{}, false, newErrorf(KindUnsupportedShape, md.Type, "no converter")
}
