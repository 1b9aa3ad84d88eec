// Package selector decides which declarations a generator receives.
//
// Two rules apply, both must pass:
//   - tags: with no selection tags only untagged declarations are included;
//     with selection tags a declaration needs at least one of them.
//   - filter: an optional expr-lang boolean expression over Env.
//
// Synthesized declarations (built-ins, extras) carry no tags. They follow the
// declarations that reference them instead.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/colelawrence/derive-codegen/internal/attr"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// Env is what a filter expression sees.
type Env struct {
	Name     string            `expr:"name"`
	Kind     string            `expr:"kind"`
	File     string            `expr:"file"`
	Line     int               `expr:"line"`
	Tags     []string          `expr:"tags"`
	Docs     string            `expr:"docs"`
	Generics []string          `expr:"generics"`
	Attrs    map[string]string `expr:"attrs"`
	Flags    []string          `expr:"flags"`
	Async    bool              `expr:"async"`
}

// Selection is a compiled tag set plus filter.
type Selection struct {
	tags   map[string]struct{}
	filter *vm.Program
	source string
}

// New compiles a selection. An empty filter matches everything.
func New(tags []string, filter string) (*Selection, error) {
	s := &Selection{tags: make(map[string]struct{}, len(tags)), source: strings.TrimSpace(filter)}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			s.tags[t] = struct{}{}
		}
	}
	if s.source != "" {
		program, err := expr.Compile(s.source, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", s.source, err)
		}
		s.filter = program
	}
	return s, nil
}

// All selects every untagged declaration.
func All() *Selection {
	return &Selection{tags: map[string]struct{}{}}
}

// Tags returns the selection tags, sorted.
func (s *Selection) Tags() []string {
	out := make([]string, 0, len(s.tags))
	for t := range s.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Includes applies the tag rule alone.
func (s *Selection) Includes(tags []string) bool {
	if len(tags) == 0 {
		return len(s.tags) == 0
	}
	for _, t := range tags {
		if _, ok := s.tags[t]; ok {
			return true
		}
	}
	return false
}

// Match applies the tag rule and then the filter.
func (s *Selection) Match(env Env) (bool, error) {
	if !s.Includes(env.Tags) {
		return false, nil
	}
	if s.filter == nil {
		return true, nil
	}
	out, err := vm.Run(s.filter, env)
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", s.source, env.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// DeclarationEnv describes a container declaration to a filter.
func DeclarationEnv(d schema.InputDeclaration) Env {
	env := attrsEnv(d.ID, d.IDLocation, d.Attrs)
	env.Kind = kindName(d.ContainerKind.Kind)
	return env
}

// FunctionEnv describes a function declaration to a filter.
func FunctionEnv(f schema.FunctionDeclaration) Env {
	env := attrsEnv(f.ID, f.IDLocation, f.Attrs)
	env.Kind = "function"
	env.Async = f.Function.IsAsync
	return env
}

func attrsEnv(name string, loc source.LocationID, a schema.Attrs) Env {
	env := Env{Name: name, Tags: attr.Tags(a), Docs: a.DocText()}
	if pos, ok := source.ParseLocation(loc); ok {
		env.File, env.Line = pos.File, int(pos.Line)
	}
	for _, g := range a.Generics {
		env.Generics = append(env.Generics, g.Name)
	}
	if len(a.CodegenAttrs) > 0 {
		env.Attrs = make(map[string]string, len(a.CodegenAttrs))
		for k, v := range a.CodegenAttrs {
			env.Attrs[k] = v.Value
		}
	}
	for k := range a.CodegenFlags {
		env.Flags = append(env.Flags, k)
	}
	sort.Strings(env.Flags)
	return env
}

func kindName(k schema.ContainerKind) string {
	switch k {
	case schema.ContainerUnitStruct:
		return "unit_struct"
	case schema.ContainerNewTypeStruct:
		return "newtype_struct"
	case schema.ContainerTupleStruct:
		return "tuple_struct"
	case schema.ContainerStruct:
		return "struct"
	case schema.ContainerEnum:
		return "enum"
	default:
		return k.String()
	}
}
