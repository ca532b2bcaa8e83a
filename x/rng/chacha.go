// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package rng

import (
	prngchacha "github.com/sixafter/prng-chacha"
)

// NewChaCha8Source returns an alternate production Source, backed by
// github.com/sixafter/prng-chacha, for deployments that prefer a
// ChaCha8-based stream cipher over AES-CTR-DRBG (e.g. no AES-NI available).
func NewChaCha8Source() (Source, error) {
	reader, err := prngchacha.NewReader()
	if err != nil {
		return nil, err
	}
	return Wrap(reader), nil
}
