package crypto

import "testing"

func TestSealUnsealMaskSeedRoundTrip(t *testing.T) {
	keys, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair: %v", err)
	}
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}
	sealed, err := SealMaskSeed(seed, keys.Public)
	if err != nil {
		t.Fatalf("SealMaskSeed: %v", err)
	}
	got, err := UnsealMaskSeed(sealed, keys)
	if err != nil {
		t.Fatalf("UnsealMaskSeed: %v", err)
	}
	if got != seed {
		t.Errorf("UnsealMaskSeed = %v, want %v", got, seed)
	}
}

func TestUnsealMaskSeedWrongKeyFails(t *testing.T) {
	keys, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair: %v", err)
	}
	other, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair: %v", err)
	}
	var seed [32]byte
	sealed, err := SealMaskSeed(seed, keys.Public)
	if err != nil {
		t.Fatalf("SealMaskSeed: %v", err)
	}
	if _, err := UnsealMaskSeed(sealed, other); err != ErrUnsealFailed {
		t.Errorf("UnsealMaskSeed with wrong key = %v, want ErrUnsealFailed", err)
	}
}

func TestUnsealMaskSeedTamperedFails(t *testing.T) {
	keys, err := GenerateBoxKeyPair()
	if err != nil {
		t.Fatalf("GenerateBoxKeyPair: %v", err)
	}
	var seed [32]byte
	sealed, err := SealMaskSeed(seed, keys.Public)
	if err != nil {
		t.Fatalf("SealMaskSeed: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := UnsealMaskSeed(sealed, keys); err != ErrUnsealFailed {
		t.Errorf("UnsealMaskSeed on tampered ciphertext = %v, want ErrUnsealFailed", err)
	}
}
