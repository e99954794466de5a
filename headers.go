package goToken

// ComposeHeaders merges three header layers into a new map. Precedence is
// defaults < hookResult < explicit: a key present in a later layer replaces the
// same key from an earlier one. Inputs are never modified and any of them may
// be nil. The result may be empty.
func ComposeHeaders(defaults, hookResult, explicit map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(hookResult)+len(explicit))
	for _, layer := range [...]map[string]any{defaults, hookResult, explicit} {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
