// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Command obucketsort is the reference CLI collaborator (§6): it reads a
// JSON array of {sort_key, payload} from a file, runs the oblivious bucket
// sort, and prints the sorted array to stdout. It is deliberately outside
// the core's scope; none of its parsing or formatting choices are covered
// by the core's testable properties.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	obucketsort "github.com/oblivsort/obucketsort"
	"github.com/oblivsort/obucketsort/x/cipher"
	"github.com/oblivsort/obucketsort/x/rng"
	"github.com/oblivsort/obucketsort/x/store"
)

const (
	exitOK = iota
	exitIOError
	exitParseError
	exitOverflow
	exitOther
)

// entry is the CLI's wire shape for one record (§6): caller-visible fields
// only, payload base64-encoded since JSON strings must be valid UTF-8.
type entry struct {
	SortKey int32  `json:"sort_key"`
	Payload string `json:"payload"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("obucketsort", flag.ContinueOnError)
	bucketSize := flags.Int("bucket-size", 64, "bucket capacity Z")
	seed := flags.Uint64("seed", 0, "deterministic RNG seed (0 draws from the OS CSPRNG); overridden by SORT_SEED")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, "obucketsort:", err)
		return exitOther
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: obucketsort <input.json> [--bucket-size Z] [--seed N]")
		return exitOther
	}

	raw, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		log.Println("obucketsort: reading input:", err)
		return exitIOError
	}

	var entries []entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Println("obucketsort: parsing input:", err)
		return exitParseError
	}

	input := make([]obucketsort.Record, len(entries))
	for i, e := range entries {
		payload, err := base64.StdEncoding.DecodeString(e.Payload)
		if err != nil {
			log.Println("obucketsort: decoding payload:", err)
			return exitParseError
		}
		input[i] = obucketsort.Record{SortKey: e.SortKey, Payload: payload}
	}

	driver, err := newDriver(*seed)
	if err != nil {
		log.Println("obucketsort: configuring driver:", err)
		return exitOther
	}

	result, err := driver.Sort(input, *bucketSize)
	if err != nil {
		log.Println("obucketsort: sort failed:", err)
		var overflow *obucketsort.BucketOverflowError
		if errors.As(err, &overflow) {
			return exitOverflow
		}
		// ParameterError means the (N, Z) pair itself is unsatisfiable, not
		// that randomization overflowed a bucket (§6/§7 distinguish the
		// two); it folds into the generic "other" code rather than sharing
		// exitOverflow's meaning.
		return exitOther
	}

	out := make([]entry, len(result))
	for i, r := range result {
		out[i] = entry{SortKey: r.SortKey, Payload: base64.StdEncoding.EncodeToString(r.Payload)}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Println("obucketsort: writing output:", err)
		return exitIOError
	}
	return exitOK
}

// newDriver wires a Driver against the in-memory store and the AES-CTR
// envelope — the CLI's simulation-mode single-tier backend (§1). SORT_SEED,
// if set, takes precedence over --seed for reproducible runs (§6).
func newDriver(seed uint64) (*obucketsort.Driver, error) {
	var rngSrc rng.Source
	if v := os.Getenv("SORT_SEED"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing SORT_SEED: %w", err)
		}
		rngSrc = rng.NewSeededSource(parsed)
	} else if seed != 0 {
		rngSrc = rng.NewSeededSource(seed)
	} else {
		src, err := rng.NewDRBGSource()
		if err != nil {
			return nil, err
		}
		rngSrc = src
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	envelope, err := cipher.NewAESEnvelope(key, rngSrc)
	if err != nil {
		return nil, err
	}

	return obucketsort.NewDriver(
		obucketsort.WithStore(store.NewMemStore()),
		obucketsort.WithEnvelope(envelope),
		obucketsort.WithRNG(rngSrc),
		obucketsort.WithStrategy(obucketsort.StrategyBitonic),
	)
}
