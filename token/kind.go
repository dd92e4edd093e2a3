// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package token implements a chunked, resumable JSON token reader and a
// matching token writer.
//
// # Reading
//
// A Reader consumes input that arrives in pieces. Call Feed to append bytes
// and Read to advance to the next token. Read reports false without error when
// the buffered input does not contain a complete token; in that case the
// reader is left exactly where it was, and the caller may Feed more data and
// try again:
//
//	r := token.NewReader(0)
//	r.Feed(chunk)
//	for {
//	   ok, err := r.Read()
//	   if err != nil {
//	      log.Fatalf("Read: %v", err)
//	   } else if !ok {
//	      break // need more input
//	   }
//	   log.Printf("Token: %v", r.Kind())
//	}
//
// A property name token includes its trailing colon, so the token following a
// PropertyName is always the member value.
//
// Call Close to indicate that no further input will arrive. After Close, a
// truncated token is reported as an error wrapping io.ErrUnexpectedEOF.
//
// # Writing
//
// A Writer accumulates encoded output in memory and inserts the separators
// required by the JSON grammar. Pending reports how many bytes are buffered,
// and Flush drains them to an io.Writer.
package token

// Kind is the type of a JSON token.
type Kind byte

// Constants defining the valid Kind values.
const (
	None         Kind = iota // no current token
	StartObject              // left brace "{"
	EndObject                // right brace "}"
	StartArray               // left square bracket "["
	EndArray                 // right square bracket "]"
	PropertyName             // quoted object key with its colon
	String                   // quoted string value
	Number                   // number value
	True                     // constant: true
	False                    // constant: false
	Null                     // constant: null
)

var kindStr = [...]string{
	None:         "none",
	StartObject:  `"{"`,
	EndObject:    `"}"`,
	StartArray:   `"["`,
	EndArray:     `"]"`,
	PropertyName: "property name",
	String:       "string",
	Number:       "number",
	True:         "true",
	False:        "false",
	Null:         "null",
}

func (k Kind) String() string {
	v := int(k)
	if v >= len(kindStr) {
		return "invalid token"
	}
	return kindStr[v]
}

// IsStart reports whether k opens an object or array.
func (k Kind) IsStart() bool { return k == StartObject || k == StartArray }

// IsEnd reports whether k closes an object or array.
func (k Kind) IsEnd() bool { return k == EndObject || k == EndArray }

// IsScalar reports whether k is a string, number, or constant value.
func (k Kind) IsScalar() bool { return k >= String && k <= Null }
