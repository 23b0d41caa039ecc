//go:build nojsonsimd

package util

import "encoding/json"

func FastJSONMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func FastJSONUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
