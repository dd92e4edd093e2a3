// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package jserial implements a resumable conversion engine between Go values
// and JSON text.
//
// # Serializers
//
// A Serializer holds options and a cache of type metadata. Construct one
// with New, and use its Marshal and Unmarshal methods to convert complete
// documents:
//
//	s := jserial.New(&jserial.Options{PropertyNaming: naming.Snake})
//	data, err := s.Marshal(v)
//	...
//	if err := s.Unmarshal(data, &v); err != nil {
//	   log.Fatalf("Unmarshal: %v", err)
//	}
//
// A Serializer is safe for concurrent use. The metadata for each type is
// built the first time the type is converted, and then shared.
//
// # Reading in chunks
//
// A Decoder reads one value from input that arrives in pieces. Feed each
// chunk as it arrives; Feed reports true once the value is complete. When
// the input ends, call Close:
//
//	dec, err := s.NewDecoder(&v)
//	...
//	for chunk := range chunks {
//	   if _, err := dec.Feed(chunk); err != nil {
//	      log.Fatalf("Decode: %v", err)
//	   }
//	}
//	if err := dec.Close(); err != nil {
//	   log.Fatalf("Decode: %v", err)
//	}
//
// The result does not depend on how the input is divided. When a chunk ends
// in the middle of a value, the decoder suspends with its progress recorded
// on an explicit stack, and resumes from that point on the next Feed.
//
// # Writing with backpressure
//
// An Encoder writes a value in steps. If Options.FlushThreshold is set, each
// call to Step stops once more than that many bytes are pending, and the
// caller flushes the output before calling Step again:
//
//	enc, err := s.NewEncoder(v)
//	...
//	for {
//	   done, err := enc.Step()
//	   if err != nil {
//	      log.Fatalf("Encode: %v", err)
//	   }
//	   if _, err := enc.Flush(w); err != nil {
//	      log.Fatalf("Flush: %v", err)
//	   }
//	   if done {
//	      break
//	   }
//	}
//
// The output is the same for every threshold. WriteTo runs this loop.
//
// # Shapes
//
// Each type is classified by shape:
//
//	Shape   | Go types                                        | JSON
//	------- | ----------------------------------------------- | --------------------
//	Scalar  | bool, numbers, string, []byte, TextMarshaler,   | any complete value
//	        | RawValue, any, custom converters                |
//	Object  | structs, types defined with Register            | {"name": value, ...}
//	Array   | slices and arrays                               | [value, ...]
//	Map     | maps with string, integer, or text keys         | {"key": value, ...}
//
// A pointer has the shape of its element type, and nil is written as null.
// Scalar values are converted atomically: their complete text is buffered
// before conversion begins. Objects, arrays, and maps are converted member
// by member, and are the points where a conversion can suspend.
//
// # Struct tags
//
// Struct fields are converted according to their "json" tags:
//
//	json:"name"            -- use this property name
//	json:"name,omitnull"   -- omit null values on write; ignore null on read
//	json:",extension"      -- collect unknown members (field must be map[string]T)
//	json:"-"               -- disable the property
//
// Without a tag name, the field name is transformed by Options.PropertyNaming.
// Unknown members in the input are skipped unless the object has an
// extension field. The properties of untagged embedded structs are promoted.
//
// # Errors
//
// Errors reported by this package have concrete type *Error. Use errors.Is
// with the Err* sentinels to test the kind of an error. The Path field gives
// the location of the failure in the document, for example "$.items[2]".
package jserial
