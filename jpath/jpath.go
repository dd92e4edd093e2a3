// Package jpath implements the document path expressions used to report
// where in a JSON value an error occurred.
//
// A path is a root marker followed by a sequence of steps:
//
//	$.store.book[2]['odd name']
//
// Member names made only of word characters are written in dot notation.
// Other names are written in bracket notation with single quotes; a single
// quote or backslash inside such a name is escaped with a backslash.
package jpath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

/*
Grammar:

  expr = root steps
  root = "$"
 steps = step [steps]
  step = "." WORD
  step = "[" INDEX "]"
  step = "[" "'" QTEXT "'" "]"

  WORD = RE `[^.\[\]'"()\s\\/]+`
 QTEXT = RE `([^'\\]|\\.)*`
 INDEX = RE `\d+`
*/

// An Expr is a document path expression.
type Expr []Step

// Root returns the empty path, which denotes the top-level value.
func Root() Expr { return nil }

// Member returns a copy of e extended with an object member step. The step is
// rendered in dot notation if possible, otherwise in bracket notation.
func (e Expr) Member(name string) Expr {
	op := Member
	if !IsPlainName(name) {
		op = QName
	}
	return e.with(Step{Op: op, Name: name})
}

// Index returns a copy of e extended with an array index step.
func (e Expr) Index(i int) Expr { return e.with(Step{Op: Index, Index: i}) }

func (e Expr) with(s Step) Expr {
	out := make(Expr, len(e), len(e)+1)
	copy(out, e)
	return append(out, s)
}

// Parse parses s as a path expression.
func Parse(s string) (Expr, error) {
	t, ok := strings.CutPrefix(s, "$")
	if !ok {
		return nil, errors.New("missing root marker")
	}
	var steps Expr
	for t != "" {
		step, rest, err := parseStep(t)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		t = rest
	}
	return steps, nil
}

func (e Expr) String() string {
	var buf strings.Builder
	buf.WriteString("$")
	for _, s := range e {
		buf.WriteString(s.String())
	}
	return buf.String()
}

func parseStep(s string) (_ Step, rest string, _ error) {
	if t, ok := strings.CutPrefix(s, "."); ok {
		m := wordRE.FindString(t)
		if m == "" {
			return Step{}, s, errors.New("invalid .name")
		}
		return Step{Op: Member, Name: m}, t[len(m):], nil
	}
	if t, ok := strings.CutPrefix(s, "['"); ok {
		name, u, err := parseQuoted(t)
		if err != nil {
			return Step{}, s, err
		}
		u, ok := strings.CutPrefix(u, "']")
		if !ok {
			return Step{}, s, errors.New("missing close bracket")
		}
		return Step{Op: QName, Name: name}, u, nil
	}
	if t, ok := strings.CutPrefix(s, "["); ok {
		m := indexRE.FindString(t)
		if m == "" {
			return Step{}, s, fmt.Errorf("invalid index: %q", t)
		}
		u, ok := strings.CutPrefix(t[len(m):], "]")
		if !ok {
			return Step{}, s, errors.New("missing close bracket")
		}
		i, err := strconv.Atoi(m)
		if err != nil {
			return Step{}, s, fmt.Errorf("invalid index: %w", err)
		}
		return Step{Op: Index, Index: i}, u, nil
	}
	return Step{}, s, errors.New("invalid path step")
}

func parseQuoted(s string) (name, rest string, _ error) {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			return buf.String(), s[i:], nil
		case '\\':
			if i+1 == len(s) {
				return "", s, errors.New("incomplete escape")
			}
			i++
		}
		buf.WriteByte(s[i])
	}
	return "", s, errors.New("unterminated quoted name")
}

// IsPlainName reports whether name can be written in dot notation.
func IsPlainName(name string) bool {
	return name != "" && wordRE.FindString(name) == name
}

var (
	wordRE  = regexp.MustCompile(`^[^.\[\]'"()\s\\/\x{0085}\x{2028}\x{2029}]+`)
	indexRE = regexp.MustCompile(`^\d+`)
)

// An Op is a path operator.
type Op byte

const (
	Invalid Op = iota // invalid operator
	Member            // member lookup in dot notation (.name)
	QName             // member lookup in bracket notation (['name'])
	Index             // array index lookup ([n])
)

var opText = map[Op]string{
	Invalid: "invalid",
	Member:  ".",
	QName:   "qname",
	Index:   "index",
}

func (o Op) String() string {
	if s, ok := opText[o]; ok {
		return s
	}
	return opText[Invalid]
}

// A Step is a single step of a path expression.
type Step struct {
	Op    Op
	Name  string // for Member and QName
	Index int    // for Index
}

func (s Step) String() string {
	switch s.Op {
	case Member:
		return "." + s.Name
	case QName:
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
		return "['" + r.Replace(s.Name) + "']"
	case Index:
		return "[" + strconv.Itoa(s.Index) + "]"
	default:
		return "[?]"
	}
}
