package flags

import "testing"

func TestDefaultString(t *testing.T) {
	if got, want := Default.String(), "651"; got != want {
		t.Errorf("Default.String() = %q, want %q", got, want)
	}
}

func TestHas(t *testing.T) {
	f := Url | MixedTypes
	if !f.Has(Url) {
		t.Error("expected Url to be set")
	}
	if f.Has(Pipelining) {
		t.Error("did not expect Pipelining to be set")
	}
	if !f.Has(Url | MixedTypes) {
		t.Error("expected both Url and MixedTypes to be set")
	}
}
