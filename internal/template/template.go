// Package template resolves configuration placeholders embedded in manifest
// values. Three syntaxes are supported, each fully exhausted before the next
// one is attempted:
//
//  1. {{path}}           - dotted lookup into the config tree ("config."
//     prefix optional), falling back to a known auxiliary variable
//  2. ${config.path:-d}  - config-tree lookup with optional default; the
//     underscore form ${config_path:-d} is equivalent
//  3. ${name:-d}         - auxiliary-variable lookup with optional default
//
// A placeholder that spans the whole input resolves to the located value with
// its original type, so a lookup can produce a boolean or number rather than
// a string. Unknown placeholders collapse to the empty string.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reMustache  = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	reConfigVar = regexp.MustCompile(`\$\{config([._])([^}:]+)(?::-([^}]*))?\}`)
	reAuxVar    = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)
	reNumeric   = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

// Resolver substitutes placeholders against one configuration tree and one
// auxiliary variable set.
type Resolver struct {
	config map[string]any
	vars   map[string]any
}

// New creates a Resolver. Either map may be nil.
func New(config, vars map[string]any) *Resolver {
	return &Resolver{config: config, vars: vars}
}

// Resolve applies placeholder resolution to every string leaf of an
// arbitrary structured value and returns the fully resolved structure.
// Non-string scalars pass through unchanged.
func (r *Resolver) Resolve(v any) any {
	switch val := v.(type) {
	case string:
		return r.ResolveString(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.Resolve(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = r.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.Resolve(item)
		}
		return out
	default:
		return v
	}
}

// ResolveString resolves every placeholder in s. When a single placeholder
// spans the whole string the looked-up value is returned with its original
// type; otherwise matches are stringified and spliced in.
func (r *Resolver) ResolveString(s string) any {
	// Syntax 1: {{path}}
	if m := reMustache.FindStringSubmatch(s); m != nil && m[0] == s {
		return r.mustacheValue(m[1])
	}
	s = reMustache.ReplaceAllStringFunc(s, func(match string) string {
		m := reMustache.FindStringSubmatch(match)
		return stringify(r.mustacheValue(m[1]))
	})

	// Syntax 2: ${config.path:-default} / ${config_path:-default}
	if m := reConfigVar.FindStringSubmatch(s); m != nil && m[0] == s {
		return r.configValue(m[1], m[2], m[3])
	}
	s = reConfigVar.ReplaceAllStringFunc(s, func(match string) string {
		m := reConfigVar.FindStringSubmatch(match)
		return stringify(r.configValue(m[1], m[2], m[3]))
	})

	// Syntax 3: ${name:-default}
	if m := reAuxVar.FindStringSubmatch(s); m != nil && m[0] == s {
		return r.auxValue(m[1], m[2])
	}
	s = reAuxVar.ReplaceAllStringFunc(s, func(match string) string {
		m := reAuxVar.FindStringSubmatch(match)
		return stringify(r.auxValue(m[1], m[2]))
	})

	return s
}

// mustacheValue resolves a {{path}} body: config tree first, then the
// auxiliary variables, then empty string.
func (r *Resolver) mustacheValue(path string) any {
	lookup := strings.TrimPrefix(path, "config.")
	if v, ok := lookupPath(r.config, strings.Split(lookup, ".")); ok {
		return v
	}
	if v, ok := r.vars[path]; ok {
		return v
	}
	return ""
}

// configValue resolves a ${config<sep>path:-default} body. The separator
// character that followed the "config" prefix also splits the path.
func (r *Resolver) configValue(sep, path, def string) any {
	if v, ok := lookupPath(r.config, strings.Split(path, sep)); ok {
		return v
	}
	if def != "" {
		return Coerce(def)
	}
	return ""
}

func (r *Resolver) auxValue(name, def string) any {
	if v, ok := r.vars[name]; ok {
		return v
	}
	if def != "" {
		return Coerce(def)
	}
	return ""
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(tree map[string]any, segments []string) (any, bool) {
	if tree == nil {
		return nil, false
	}
	var cur any = tree
	for _, seg := range segments {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[any]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Coerce applies the central default-coercion rule: literal booleans become
// booleans, numeric-looking strings become numbers, everything else stays a
// string.
func Coerce(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if reNumeric.MatchString(s) {
		if !strings.Contains(s, ".") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return int(n)
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
