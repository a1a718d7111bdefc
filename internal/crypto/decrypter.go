package crypto

import "context"

// MaskSeedDecrypter implements internal/message's Decrypter interface: it
// unseals a sealed mask seed under the coordinator's current box keypair.
// The coordinator's box keypair is expected to be rotated alongside its
// signing keypair at each new round (spec §3 RoundParameters: "rotated at
// each new round"); Current is re-read on every call so a rotation takes
// effect for the next in-flight decrypt.
type MaskSeedDecrypter struct {
	Current func() BoxKeyPair
}

// Decrypt unseals sealed (spec §4.4 step 7, §7 DecryptFailed).
func (d MaskSeedDecrypter) Decrypt(_ context.Context, sealed []byte) ([]byte, error) {
	keys := d.Current()
	seed, err := UnsealMaskSeed(sealed, keys)
	if err != nil {
		return nil, err
	}
	return seed[:], nil
}
