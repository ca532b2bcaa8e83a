// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package obucketsort

import (
	"github.com/oblivsort/obucketsort/x/cipher"
	"github.com/oblivsort/obucketsort/x/rng"
	"github.com/oblivsort/obucketsort/x/store"
)

// Strategy selects which MergeSplit realization (§4.4) the driver uses.
type Strategy int

const (
	// StrategyPartitionAndPad is §4.4.1: simple, local, but its in-enclave
	// access pattern depends on real/dummy placement.
	StrategyPartitionAndPad Strategy = iota

	// StrategyBitonic is §4.4.2 run with the whole 2Z array held in
	// enclave memory at once.
	StrategyBitonic

	// StrategyBitonicConstantStorage is §4.4.2 with block-granular writes
	// against a store.BlockStore (§9's "constantSpaceBitonicSort"): each
	// MergeSplit's outputs are written in Window-sized WriteBlock calls,
	// while its inputs are still read whole with ReadBucket. Falls back to
	// StrategyBitonic if the configured Store does not implement the block
	// methods.
	StrategyBitonicConstantStorage
)

// defaultWindow is §9's reference block-streaming window size.
const defaultWindow = 64

// defaultSafetyFactor is §4.3's reference value (the minimum the spec
// requires; raising it trades capacity for a lower overflow probability).
const defaultSafetyFactor = 1

// Option configures a Driver. Options compose with the functional-options
// pattern; apply them in any order to NewDriver.
type Option func(*options)

type options struct {
	store        store.Store
	envelope     cipher.Envelope
	rngSource    rng.Source
	strategy     Strategy
	safetyFactor int
	window       int
}

// WithStore sets the untrusted storage tier the driver reads and writes
// ciphertext buckets to. Required.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithEnvelope sets the cipher envelope used to encrypt/decrypt every
// bucket slot on every write/read. Required.
func WithEnvelope(e cipher.Envelope) Option {
	return func(o *options) { o.envelope = e }
}

// WithRNG sets the single PRNG the driver draws all randomness from for
// this sort invocation (§5, "RNG discipline"): routing-key assignment at
// init and permutation-key assignment at extraction. Required.
func WithRNG(r rng.Source) Option {
	return func(o *options) { o.rngSource = r }
}

// WithStrategy selects the MergeSplit realization. Defaults to
// StrategyPartitionAndPad.
func WithStrategy(s Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithSafetyFactor sets §4.3's safety_factor (must be >= 1). Raising it
// grows B to lower the empirical BucketOverflow rate (§8, P4) at the cost
// of more levels and more ciphertext traffic.
func WithSafetyFactor(f int) Option {
	return func(o *options) { o.safetyFactor = f }
}

// WithWindow sets the block-streaming window W used by
// StrategyBitonicConstantStorage (§9). Ignored by the other strategies.
func WithWindow(w int) Option {
	return func(o *options) { o.window = w }
}

// Params exposes a Driver's effective, immutable-after-construction
// configuration.
type Params interface {
	Strategy() Strategy
	SafetyFactor() int
	Window() int
}

// runtimeParams is the built, validated configuration backing a Driver.
// It is immutable after NewDriver returns.
type runtimeParams struct {
	strategy     Strategy
	safetyFactor int
	window       int
}

func (p *runtimeParams) Strategy() Strategy { return p.strategy }
func (p *runtimeParams) SafetyFactor() int  { return p.safetyFactor }
func (p *runtimeParams) Window() int        { return p.window }

// Driver orchestrates the three-phase bucket oblivious sort (§4.5) against
// one Store, one Envelope, and one RNG Source. A Driver is reusable across
// multiple Sort calls; each Sort call is itself linear and single-threaded
// (§5): Init -> Level_0 -> ... -> Level_L -> Permute -> FinalSort -> Done.
type Driver struct {
	params   *runtimeParams
	store    store.Store
	envelope cipher.Envelope
	rngSrc   rng.Source
}

// NewDriver validates options and constructs a Driver. Store, Envelope, and
// RNG are required; omitting any of them is a configuration error the
// caller must fix before calling Sort.
func NewDriver(opts ...Option) (*Driver, error) {
	o := &options{
		strategy:     StrategyPartitionAndPad,
		safetyFactor: defaultSafetyFactor,
		window:       defaultWindow,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.store == nil {
		return nil, ErrNilStore
	}
	if o.envelope == nil {
		return nil, ErrNilEnvelope
	}
	if o.rngSource == nil {
		return nil, ErrNilRNG
	}
	if o.safetyFactor < 1 {
		o.safetyFactor = defaultSafetyFactor
	}
	if o.window < 1 {
		o.window = defaultWindow
	}

	return &Driver{
		params: &runtimeParams{
			strategy:     o.strategy,
			safetyFactor: o.safetyFactor,
			window:       o.window,
		},
		store:    o.store,
		envelope: o.envelope,
		rngSrc:   o.rngSource,
	}, nil
}

// Params returns the driver's effective configuration.
func (d *Driver) Params() Params { return d.params }
