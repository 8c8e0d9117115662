package jsonutil

import "testing"

func TestHashDocument_OrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}

	ha, err := HashDocument(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := HashDocument(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("expected equal hashes, got %s != %s", ha, hb)
	}
}

func TestHashBytes_DifferentContentDiffers(t *testing.T) {
	ha, err := HashBytes([]byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashBytes([]byte(`{"a":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Fatalf("expected different hashes")
	}
}

func TestEqual(t *testing.T) {
	if !Equal([]byte(`{"a":1,"b":2}`), []byte(`{"b":2,"a":1}`)) {
		t.Fatalf("expected documents to compare equal")
	}
	if Equal([]byte(`{"a":1}`), []byte(`{"a":2}`)) {
		t.Fatalf("expected documents to differ")
	}
}
