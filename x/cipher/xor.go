// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cipher

// DefaultXORKey is the fixed 32-bit key used by XOREnvelope when none is
// supplied. It provides no security; it exists only so algorithmic
// correctness tests have a stable, reproducible "ciphertext".
const DefaultXORKey uint32 = 0xdeadbeef

// XOREnvelope is the reference/testing-only realization of §4.2: each
// integer field and the payload are XORed with a fixed 32-bit key. The
// dummy flag is left in clear, which is why this envelope is unsuitable
// against a ciphertext-analyzing adversary (P6 only holds for AESEnvelope).
type XOREnvelope struct {
	key uint32
}

// NewXOREnvelope returns an XOREnvelope keyed by key. A zero key falls back
// to DefaultXORKey.
func NewXOREnvelope(key uint32) *XOREnvelope {
	if key == 0 {
		key = DefaultXORKey
	}
	return &XOREnvelope{key: key}
}

func (e *XOREnvelope) Encrypt(sortKey, routingKey int32, isDummy bool, seq int32, payload []byte) ([]byte, error) {
	maskedPayload := e.xorPayload(payload)
	return encodeInterior(sortKey^int32(e.key), routingKey^int32(e.key), isDummy, seq^int32(e.key), maskedPayload), nil
}

func (e *XOREnvelope) Decrypt(wire []byte) (sortKey, routingKey int32, isDummy bool, seq int32, payload []byte, err error) {
	sortKey, routingKey, isDummy, seq, payload, err = decodeInterior(wire)
	if err != nil {
		return 0, 0, false, 0, nil, err
	}
	sortKey ^= int32(e.key)
	routingKey ^= int32(e.key)
	seq ^= int32(e.key)
	payload = e.xorPayload(payload)
	return sortKey, routingKey, isDummy, seq, payload, nil
}

// xorPayload XORs every byte against the repeating little-endian byte
// stream of the 32-bit key. XOR is an involution, so the same call encrypts
// and decrypts.
func (e *XOREnvelope) xorPayload(payload []byte) []byte {
	if len(payload) == 0 {
		return payload
	}
	keyBytes := [4]byte{byte(e.key), byte(e.key >> 8), byte(e.key >> 16), byte(e.key >> 24)}
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = b ^ keyBytes[i%4]
	}
	return out
}
