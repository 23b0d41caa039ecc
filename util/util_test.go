package util

import (
	"bytes"
	"testing"
)

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RandomBytes(8)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("unexpected lengths %d %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatal("two draws returned the same bytes")
	}
}

func TestFastJSONRoundTrip(t *testing.T) {
	in := map[string]any{"id": float64(1), "method": "mining.subscribe", "params": []any{"agent/1.0", nil}}
	raw, err := FastJSONMarshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := FastJSONUnmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out["method"] != "mining.subscribe" || out["id"] != float64(1) {
		t.Fatalf("round trip mismatch: %v", out)
	}
	params, ok := out["params"].([]any)
	if !ok || len(params) != 2 || params[0] != "agent/1.0" || params[1] != nil {
		t.Fatalf("params mismatch: %v", out["params"])
	}
}
