package tx

import "encoding/json"

// canonicalMarshal wraps json.Marshal (never json.MarshalIndent) so callers
// can't accidentally introduce whitespace variance that would break
// cross-peer hash agreement.
func canonicalMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
