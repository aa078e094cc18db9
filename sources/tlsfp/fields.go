package tlsfp

import "encoding/json"

// fieldAliases lists, for each logical field, the JSON key spellings a
// caller-configured endpoint is permitted to use, in priority order — the
// first alias present in the response wins. Adapted from the teacher's
// payload.Validator idea of treating a response's field set as something
// that drifts under the caller's control rather than something to assume
// fixed; here the drift is tolerated rather than merely reported.
var fieldAliases = map[string][]string{
	"ja3Hash": {"ja3_hash", "ja3Hash", "ja3"},
	"ja3Full": {"ja3_full", "ja3Full", "ja3_string"},
	"ja4":     {"ja4"},
}

// extractField looks up the first alias of logicalField present in raw and
// decodes it as a string. Returns "" if none of the aliases are present or
// the present one is not a JSON string.
func extractField(raw map[string]json.RawMessage, logicalField string) string {
	for _, alias := range fieldAliases[logicalField] {
		msg, ok := raw[alias]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			return s
		}
	}
	return ""
}
