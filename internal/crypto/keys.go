// Package crypto implements the coordinator's signing and mask-seed-sealing
// keys. Ed25519 is used directly for message signatures (spec §3 "Signature
// covers header + payload... verify_detached MUST succeed"), grounded on
// _examples/perplext-LLMrecon/src/update/sign.go calling crypto/ed25519
// directly rather than through a third-party wrapper — the ecosystem idiom
// this pack demonstrates. A separate X25519 box keypair seals the per-
// message mask seed (SPEC_FULL.md §4, resolving spec §9's "mask seed
// lifecycle" open question).
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/box"
)

// SigningKeyPair is the coordinator's Ed25519 identity, published through
// the event fabric's keys_channel (spec §4.7) and carried as the
// coordinator_public_key in RoundParameters and in every Message header.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateSigningKeyPair creates a fresh Ed25519 keypair.
func GenerateSigningKeyPair() (SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKeyPair{}, err
	}
	return SigningKeyPair{Public: pub, Private: priv}, nil
}

// BoxKeyPair is the coordinator's X25519 keypair used to unseal mask seeds.
type BoxKeyPair struct {
	Public  *[32]byte
	Private *[32]byte
}

// GenerateBoxKeyPair creates a fresh X25519 keypair via NaCl box.
func GenerateBoxKeyPair() (BoxKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return BoxKeyPair{}, err
	}
	return BoxKeyPair{Public: pub, Private: priv}, nil
}

// ErrUnsealFailed is returned when a sealed mask seed fails to open, either
// because it was not sealed for this coordinator's box key or because it
// was tampered with.
var ErrUnsealFailed = errors.New("crypto: failed to unseal mask seed")

// SealMaskSeed encrypts a 32-byte mask seed under the coordinator's current
// box public key (client-side operation; the client never holds the
// coordinator's private key).
func SealMaskSeed(seed [32]byte, coordinatorBoxPub *[32]byte) ([]byte, error) {
	return box.SealAnonymous(nil, seed[:], coordinatorBoxPub, rand.Reader)
}

// UnsealMaskSeed reverses SealMaskSeed using the coordinator's box keypair
// (pipeline's decrypt stage, spec §4.4 step 7).
func UnsealMaskSeed(sealed []byte, keys BoxKeyPair) ([32]byte, error) {
	out, ok := box.OpenAnonymous(nil, sealed, keys.Public, keys.Private)
	if !ok {
		return [32]byte{}, ErrUnsealFailed
	}
	if len(out) != 32 {
		return [32]byte{}, ErrUnsealFailed
	}
	var seed [32]byte
	copy(seed[:], out)
	return seed, nil
}
