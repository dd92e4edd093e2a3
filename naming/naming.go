// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package naming defines policies that transform Go member names and map keys
// into the names written to JSON.
package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// A Policy transforms a name. A nil Policy leaves names unchanged.
type Policy func(string) string

// Apply returns p(name), or name itself if p == nil.
func (p Policy) Apply(name string) string {
	if p == nil {
		return name
	}
	return p(name)
}

// Predefined policies.
var (
	Snake          Policy = strcase.ToSnake          // FooBar → foo_bar
	ScreamingSnake Policy = strcase.ToScreamingSnake // FooBar → FOO_BAR
	Kebab          Policy = strcase.ToKebab          // FooBar → foo-bar
	Camel          Policy = strcase.ToLowerCamel     // FooBar → fooBar
	Pascal         Policy = strcase.ToCamel          // fooBar → FooBar
	Lower          Policy = strings.ToLower
)

var byName = map[string]Policy{
	"":                nil,
	"none":            nil,
	"snake":           Snake,
	"screaming_snake": ScreamingSnake,
	"kebab":           Kebab,
	"camel":           Camel,
	"pascal":          Pascal,
	"lower":           Lower,
}

// Lookup returns the policy with the given name. The empty string and "none"
// denote the nil policy.
func Lookup(name string) (Policy, error) {
	p, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown naming policy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names returns the names of the known policies in sorted order.
func Names() []string {
	var out []string
	for name := range byName {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
