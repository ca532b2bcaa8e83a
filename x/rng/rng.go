// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package rng provides the single seeded PRNG each sort invocation owns
// (§5, "RNG discipline"): routing-key assignment at initialization and
// permutation-key assignment at extraction both draw from one Source. Three
// backends are provided: a production AES-CTR-DRBG, a ChaCha8 stream, and a
// deterministic seeded backend for reproducible tests (§6, SORT_SEED).
package rng

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Source is a cryptographically-adequate PRNG exposed as an io.Reader, plus
// a uniform-in-range sampler used for routing keys ([0, B)) and permutation
// keys. Uniformity of IntN is what the overflow bound in §4.3/§8 (P4)
// depends on; any source satisfying this interface is acceptable for
// confidentiality per spec (reference uses a Mersenne-Twister; this module
// uses cryptographic backends throughout since they are what the example
// corpus already ships).
type Source interface {
	io.Reader

	// IntN returns a uniform random integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// source adapts any io.Reader into a Source using rejection sampling over
// big-endian uint32 draws, avoiding modulo bias.
type source struct {
	io.Reader
}

// Wrap adapts an arbitrary io.Reader (e.g. one returned by a third-party
// CSPRNG constructor) into a Source.
func Wrap(r io.Reader) Source {
	return &source{Reader: r}
}

func (s *source) IntN(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("rng: IntN called with non-positive n=%d", n))
	}
	if n == 1 {
		return 0
	}

	limit := uint32(n)
	// threshold is 2^32 mod limit; draws below it are rejected and redrawn,
	// so the accepted range [threshold, 2^32) is a whole multiple of limit
	// and v % limit is exactly uniform.
	threshold := -limit % limit

	var buf [4]byte
	for {
		if _, err := io.ReadFull(s.Reader, buf[:]); err != nil {
			panic(fmt.Sprintf("rng: reading random bytes: %v", err))
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v >= threshold {
			return int(v % limit)
		}
	}
}
