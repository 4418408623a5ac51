package canonicalize

import (
	"strings"
	"testing"
)

func TestJCS_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"z": true, "y": false}}
	b := map[string]any{"nested": map[string]any{"y": false, "z": true}, "a": 1, "b": 2}

	ca, err := JCS(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := JCS(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ca) != string(cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
	if want := `{"a":1,"b":2,"nested":{"y":false,"z":true}}`; string(ca) != want {
		t.Errorf("canonical form = %s, want %s", ca, want)
	}
}

func TestJCS_Unrepresentable(t *testing.T) {
	if _, err := JCS(func() {}); err == nil {
		t.Error("expected error for non-JSON value")
	}
}

func TestCanonicalHash(t *testing.T) {
	h1, err := CanonicalHash(map[string]any{"x": 1, "y": "s"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := CanonicalHash(map[string]any{"y": "s", "x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") || len(h1) != len("sha256:")+64 {
		t.Errorf("hash format = %q", h1)
	}

	h3, err := CanonicalHash(map[string]any{"x": 2, "y": "s"})
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("distinct values hash equal")
	}
}
