package diff

import (
	"fmt"
	"sort"
	"strconv"
)

// Compare computes the ordered list of field paths at which desired and
// observed disagree. The comparison is asymmetric by design: only keys
// present in the desired config are considered, so extra runtime-observed
// fields never count as drift. An empty result means up to date.
func Compare(desired, observed Canonical) []string {
	var paths []string
	d := map[string]any(desired)
	if argvPaths, handled := compareArgv(d, observed); handled {
		paths = append(paths, argvPaths...)
		d = copyWithout(d, "entrypoint", "command")
	}
	compareMaps("", d, map[string]any(observed), &paths)
	sort.Strings(paths)
	return paths
}

// compareArgv handles a declared entrypoint. The runtime splits it across
// the entrypoint slot and the command tail, so the two fields are only
// comparable as one effective argv; the individual keys are withheld from
// the generic walk once this runs.
func compareArgv(desired, observed map[string]any) ([]string, bool) {
	entry, ok := desired["entrypoint"].([]any)
	if !ok || len(entry) == 0 {
		return nil, false
	}
	want := appendList(appendList(nil, desired["entrypoint"]), desired["command"])
	have := appendList(appendList(nil, observed["entrypoint"]), observed["command"])
	if len(want) != len(have) {
		return []string{"entrypoint"}, true
	}
	for i := range want {
		if !scalarEqual(want[i], have[i]) {
			return []string{"entrypoint"}, true
		}
	}
	return nil, true
}

func appendList(dst []any, v any) []any {
	if list, ok := v.([]any); ok {
		dst = append(dst, list...)
	}
	return dst
}

func copyWithout(m map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func compareMaps(prefix string, desired, observed map[string]any, paths *[]string) {
	keys := make([]string, 0, len(desired))
	for k := range desired {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		observedVal, ok := observed[k]
		if !ok {
			*paths = append(*paths, path)
			continue
		}
		compareValues(path, desired[k], observedVal, paths)
	}
}

func compareValues(path string, desired, observed any, paths *[]string) {
	switch want := desired.(type) {
	case map[string]any:
		have, ok := observed.(map[string]any)
		if !ok {
			*paths = append(*paths, path)
			return
		}
		compareMaps(path, want, have, paths)
	case []any:
		have, ok := observed.([]any)
		if !ok || len(have) != len(want) {
			*paths = append(*paths, path)
			return
		}
		for i := range want {
			compareValues(fmt.Sprintf("%s[%d]", path, i), want[i], have[i], paths)
		}
	default:
		if !scalarEqual(desired, observed) {
			*paths = append(*paths, path)
		}
	}
}

// scalarEqual treats numbers and their string representations as equal, so
// "8080" matches 8080 regardless of which side was parsed from text.
func scalarEqual(a, b any) bool {
	if a == b {
		return true
	}
	an, aok := numericValue(a)
	bn, bok := numericValue(b)
	return aok && bok && an == bn
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
