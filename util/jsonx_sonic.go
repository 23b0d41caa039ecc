//go:build !nojsonsimd

package util

import "github.com/bytedance/sonic"

var fastJSON = sonic.ConfigStd

// FastJSONMarshal encodes v with Sonic. Stratum frames and the status page
// both go through here.
func FastJSONMarshal(v any) ([]byte, error) {
	return fastJSON.Marshal(v)
}

// FastJSONUnmarshal decodes data into v with Sonic.
func FastJSONUnmarshal(data []byte, v any) error {
	return fastJSON.Unmarshal(data, v)
}
