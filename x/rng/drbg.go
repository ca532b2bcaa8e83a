// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package rng

import (
	aesctrdrbg "github.com/sixafter/aes-ctr-drbg"
)

// NewDRBGSource returns the production Source, backed by
// github.com/sixafter/aes-ctr-drbg: a pool-backed, NIST SP 800-90A
// AES-CTR-DRBG. The obucketsort CLI uses it when no seed is given. A
// Driver has no built-in default: NewDriver rejects a missing WithRNG
// option with ErrNilRNG.
func NewDRBGSource() (Source, error) {
	reader, err := aesctrdrbg.NewReader()
	if err != nil {
		return nil, err
	}
	return Wrap(reader), nil
}
