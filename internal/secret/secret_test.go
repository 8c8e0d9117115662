package secret

import "testing"

func TestSealOpen_RoundTrip(t *testing.T) {
	b, err := NewBox("operator-secret-key")
	if err != nil {
		t.Fatal(err)
	}

	envelope, err := b.Seal("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !IsSealed(envelope) {
		t.Fatalf("expected sealed envelope to be recognized")
	}

	plain, err := b.Open(envelope)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "hunter2" {
		t.Fatalf("got %q want %q", plain, "hunter2")
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	b1, _ := NewBox("key-one")
	b2, _ := NewBox("key-two")

	envelope, err := b1.Seal("secret-value")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b2.Open(envelope); err == nil {
		t.Fatalf("expected decryption with wrong key to fail")
	}
}

func TestNewBox_EmptyKeyMaterial(t *testing.T) {
	if _, err := NewBox(""); err != ErrEmptyKeyMaterial {
		t.Fatalf("got %v want ErrEmptyKeyMaterial", err)
	}
}

func TestOpen_MalformedEnvelope(t *testing.T) {
	b, _ := NewBox("k")
	if _, err := b.Open("not-an-envelope"); err != ErrMalformedEnvelope {
		t.Fatalf("got %v want ErrMalformedEnvelope", err)
	}
}

func TestIsSealed(t *testing.T) {
	if IsSealed("plaintext-password") {
		t.Fatalf("plaintext should not look sealed")
	}
}
