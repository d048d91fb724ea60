package secretbox

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New("master-secret")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	plaintext := []byte("sk-live-abcdefghijklmnop")
	blob, err := box.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(blob, plaintext) {
		t.Error("ciphertext contains the plaintext")
	}

	opened, err := box.Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Error("round trip mismatch")
	}
}

func TestSealUsesFreshNonces(t *testing.T) {
	box, _ := New("master-secret")

	a, _ := box.Seal([]byte("same plaintext"))
	b, _ := box.Seal([]byte("same plaintext"))
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext produced identical blobs")
	}
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	box, _ := New("master-secret")

	blob, _ := box.Seal([]byte("credential"))
	blob[len(blob)-1] ^= 0x01

	if _, err := box.Open(blob); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestOpenRejectsShortBlob(t *testing.T) {
	box, _ := New("master-secret")

	if _, err := box.Open([]byte{0x01, 0x02}); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestOpenRejectsOtherMasterSecret(t *testing.T) {
	a, _ := New("secret-a")
	b, _ := New("secret-b")

	blob, _ := a.Seal([]byte("credential"))
	if _, err := b.Open(blob); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestNewRequiresMasterSecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty master secret")
	}
}
