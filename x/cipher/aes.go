// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cipher

import (
	stdaes "crypto/aes"
	stdcipher "crypto/cipher"
	"fmt"
	"io"
)

// AESEnvelope is the production realization of §4.2: a 128/192/256-bit AES
// key in CTR mode. Every record is serialized, encrypted whole, and tucked
// entirely inside the ciphertext payload field of an on-disk record whose
// cleartext sort_key, routing_key, and is_dummy are overwritten with fixed
// zero bytes — so the ciphertext envelope hides the dummy flag (P6).
//
// Per §9's design note, the key is not a package-level singleton: it is
// owned by whoever constructs this envelope (the CLI's newDriver, for
// instance) and hands it to a Driver via WithEnvelope, making key lifetime
// explicit.
type AESEnvelope struct {
	block stdcipher.Block
	rand  io.Reader
}

// NewAESEnvelope constructs an AESEnvelope from a caller-supplied key (16,
// 24, or 32 bytes for AES-128/192/256) and a randomness source for the
// per-record IV. randSource is typically the driver's own rng.Source.
func NewAESEnvelope(key []byte, randSource io.Reader) (*AESEnvelope, error) {
	block, err := stdaes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	if randSource == nil {
		return nil, fmt.Errorf("cipher: nil random source")
	}
	return &AESEnvelope{block: block, rand: randSource}, nil
}

func (e *AESEnvelope) Encrypt(sortKey, routingKey int32, isDummy bool, seq int32, payload []byte) ([]byte, error) {
	interior := encodeInterior(sortKey, routingKey, isDummy, seq, payload)

	iv := make([]byte, stdaes.BlockSize)
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return nil, fmt.Errorf("cipher: generating iv: %w", err)
	}

	ciphertext := make([]byte, len(interior))
	stream := stdcipher.NewCTR(e.block, iv)
	stream.XORKeyStream(ciphertext, interior)

	blob := make([]byte, 0, len(iv)+len(ciphertext))
	blob = append(blob, iv...)
	blob = append(blob, ciphertext...)

	// Cleartext fields of the on-disk record are zeroed; the real values
	// live only inside the ciphertext blob carried in payload.
	return encodeInterior(0, 0, false, 0, blob), nil
}

func (e *AESEnvelope) Decrypt(wire []byte) (sortKey, routingKey int32, isDummy bool, seq int32, payload []byte, err error) {
	_, _, _, _, blob, err := decodeInterior(wire)
	if err != nil {
		return 0, 0, false, 0, nil, err
	}
	if len(blob) < stdaes.BlockSize {
		return 0, 0, false, 0, nil, fmt.Errorf("cipher: truncated ciphertext blob: %d bytes", len(blob))
	}

	iv, ciphertext := blob[:stdaes.BlockSize], blob[stdaes.BlockSize:]
	interior := make([]byte, len(ciphertext))
	stream := stdcipher.NewCTR(e.block, iv)
	stream.XORKeyStream(interior, ciphertext)

	return decodeInterior(interior)
}
