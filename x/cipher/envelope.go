// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package cipher provides the two interchangeable bucket-envelope
// realizations (§4.2 of the engine's design): a fixed-key XOR cipher used
// only to verify algorithmic correctness, and a production AES-CTR cipher
// whose ciphertext hides the dummy flag. Both satisfy the Envelope
// interface so the sort driver is agnostic to which one it is wired to.
package cipher

// Envelope serializes one record's plaintext fields into the on-disk wire
// form, and reverses that transform. Decrypt(Encrypt(...)) reproduces the
// original fields exactly. Encrypt(Decrypt(w)) == w holds for XOREnvelope;
// AESEnvelope draws a fresh IV on every Encrypt, so re-encrypting yields
// different bytes that decrypt to the same fields.
//
// Implementations MAY additionally hide IsDummy in the ciphertext; callers
// must not rely on the cleartext fields of the returned wire bytes to infer
// dummy status unless they know which Envelope produced them.
type Envelope interface {
	// Encrypt serializes and encrypts one record into its on-disk wire form.
	Encrypt(sortKey, routingKey int32, isDummy bool, seq int32, payload []byte) ([]byte, error)

	// Decrypt reverses Encrypt. A malformed or truncated wire value is a
	// fatal error (§4.2 "Failure").
	Decrypt(wire []byte) (sortKey, routingKey int32, isDummy bool, seq int32, payload []byte, err error)
}
