package canon

import "testing"

func TestCanonicalizeSortsKeys(t *testing.T) {
	in := []byte(`{ "b":2, "a":1 }`)
	want := `{"a":1,"b":2}`
	out, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("canonicalize error: %v", err)
	}
	if string(out) != want {
		t.Fatalf("unexpected canonical form: %s", string(out))
	}
}

func TestMarshalCanonicalStable(t *testing.T) {
	type payload struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	first, err := MarshalCanonical(payload{A: 1, B: 2})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	second, err := MarshalCanonical(payload{A: 1, B: 2})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical canonical bytes")
	}
	if string(first) != `{"a":1,"b":2}` {
		t.Fatalf("unexpected canonical bytes: %s", string(first))
	}
}

func TestDigestSHA256EquivalentJSON(t *testing.T) {
	a, err := DigestSHA256([]byte(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	b, err := DigestSHA256([]byte(`{ "b":2, "a":1 }`))
	if err != nil {
		t.Fatalf("digest error: %v", err)
	}
	if a != b {
		t.Fatalf("expected same digest for equivalent JSON")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex length, got %d", len(a))
	}
}

func TestDigestSHA256Invalid(t *testing.T) {
	if _, err := DigestSHA256([]byte(`{`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestSHA1Hex(t *testing.T) {
	// Known vector: sha1("abc").
	if got := SHA1Hex([]byte("abc")); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("unexpected sha1: %s", got)
	}
}

func TestSHA256Hex(t *testing.T) {
	if got := SHA256Hex([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256: %s", got)
	}
}
