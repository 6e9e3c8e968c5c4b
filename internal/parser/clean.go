package parser

// Prune removes nil values and empty collections from a structured value,
// recursively, so a normalized document carries no empty placeholders.
// Scalars pass through unchanged; a value that becomes empty after pruning
// is itself dropped by the caller (Prune returns nil for it).
func Prune(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if cleaned := Prune(item); cleaned != nil {
				out[k] = cleaned
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if cleaned := Prune(item); cleaned != nil {
				out[toString(k)] = cleaned
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if cleaned := Prune(item); cleaned != nil {
				out = append(out, cleaned)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return val
	case nil:
		return nil
	default:
		return v
	}
}

// PruneMap applies Prune to every entry of a map, dropping entries that
// prune away entirely. Returns nil when nothing survives.
func PruneMap(m map[string]any) map[string]any {
	cleaned := Prune(m)
	if cleaned == nil {
		return nil
	}
	return cleaned.(map[string]any)
}
