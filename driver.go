// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package obucketsort

import (
	"sort"
)

// computeBucketParameters implements §4.3: given N records and bucket
// capacity Z, returns the level width B (a power of two) and level count
// L = log2(B). It rejects any Z < 2, and any (N, Z) pair for which the B it
// computes fails N <= B*(Z/2); a larger B is not tried.
func computeBucketParameters(n, z, safetyFactor int) (b, l int, err error) {
	if z < 2 {
		return 0, 0, &ParameterError{N: n, Z: z, B: 0}
	}
	if n == 0 {
		return 1, 0, nil
	}

	bMin := ceilDiv(2*n, z)
	b = nextPow2(bMin * safetyFactor)
	if b < 1 {
		b = 1
	}
	l = log2(b)

	if n > b*(z/2) {
		return 0, 0, &ParameterError{N: n, Z: z, B: b}
	}
	return b, l, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	k := 1
	for k < n {
		k <<= 1
	}
	return k
}

func log2(n int) int {
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// decryptBucketAt reads and decrypts every slot of the bucket at (level,
// index), reconstructing a Z-length Bucket.
func (d *Driver) decryptBucketAt(level, index int) (*Bucket, error) {
	wire, err := d.store.ReadBucket(level, index)
	if err != nil {
		return nil, &IOError{Level: level, Index: index, Op: "read", Err: err}
	}

	slots := make([]Record, len(wire))
	for i, blob := range wire {
		sortKey, routingKey, isDummy, seq, payload, err := d.envelope.Decrypt(blob)
		if err != nil {
			return nil, &DecryptionError{Level: level, Index: index, Err: err}
		}
		slots[i] = Record{
			SortKey:    sortKey,
			RoutingKey: routingKey,
			IsDummy:    isDummy,
			Seq:        seq,
			Payload:    payload,
		}
	}
	return bucketFromSlots(slots), nil
}

// encryptAndWriteBucket encrypts every slot of b and writes the result to
// (level, index).
func (d *Driver) encryptAndWriteBucket(level, index int, b *Bucket) error {
	wire := make([][]byte, b.Len())
	for i := 0; i < b.Len(); i++ {
		r := b.At(i)
		blob, err := d.envelope.Encrypt(r.SortKey, r.RoutingKey, r.IsDummy, r.Seq, r.Payload)
		if err != nil {
			return &DecryptionError{Level: level, Index: index, Err: err}
		}
		wire[i] = blob
	}
	if err := d.store.WriteBucket(level, index, wire); err != nil {
		return &IOError{Level: level, Index: index, Op: "write", Err: err}
	}
	return nil
}

// initializeBuckets implements §4.5 step 2: draws i.i.d. uniform routing
// keys on [0, B), partitions the N records into B contiguous groups of
// ceil(N/B), pads each to Z with dummies, and writes them to level 0. Every
// real record is also stamped with its position in the caller's input
// (Seq); nothing downstream reassigns it, so finalSort can use it to
// recover input order among equal sort_keys after extractFinalElements has
// scrambled every bucket's relative order (P2; see DESIGN.md).
func (d *Driver) initializeBuckets(input []Record, b, z int) error {
	n := len(input)
	groupSize := ceilDiv(n, b)
	if groupSize == 0 {
		groupSize = 1
	}

	for i := 0; i < b; i++ {
		lo := i * groupSize
		hi := lo + groupSize
		if lo > n {
			lo = n
		}
		if hi > n {
			hi = n
		}

		group := make([]Record, 0, z)
		for j, r := range input[lo:hi] {
			rec := r
			rec.RoutingKey = int32(d.rngSrc.IntN(b))
			rec.Seq = int32(lo + j)
			group = append(group, rec)
		}

		if len(group) > z/2 {
			return &BucketOverflowError{Level: 0, PairIndex: i / 2, Side: OverflowSide(i % 2), Count: len(group), Capacity: z / 2}
		}

		for len(group) < z {
			group = append(group, dummyRecord())
		}

		if err := d.encryptAndWriteBucket(0, i, bucketFromSlots(group)); err != nil {
			return err
		}
	}
	return nil
}

// mergeSplitPair dispatches to the configured MergeSplit realization for
// one bucket pair (2i, 2i+1) at level, routing on the given bit. written
// reports whether the realization already wrote its outputs to the store
// itself (the blocked streaming path), in which case the caller must not
// write them again.
func (d *Driver) mergeSplitPair(level, pairIndex int, bit uint, b1, b2 *Bucket, z int) (out0, out1 *Bucket, written bool, err error) {
	switch d.params.strategy {
	case StrategyBitonic:
		out0, out1, err = bitonicMergeSplit(b1, b2, bit, z)
	case StrategyBitonicConstantStorage:
		if bs, ok := d.store.(blockStoreCapable); ok {
			out0, out1, err = d.mergeSplitPairBlocked(bs, level, pairIndex, bit, b1, b2, z)
			written = err == nil
		} else {
			out0, out1, err = bitonicMergeSplit(b1, b2, bit, z)
		}
	default:
		out0, out1, err = partitionAndPad(b1, b2, bit, z)
	}

	if err != nil {
		if oe, ok := err.(*BucketOverflowError); ok {
			oe.Level = level
			oe.PairIndex = pairIndex
		}
		return nil, nil, false, err
	}
	return out0, out1, written, nil
}

// blockStoreCapable mirrors store.BlockStore's block methods without
// importing the store package into this file; mergeSplitPair type-asserts
// the configured Store against this interface, not against store.BlockStore.
type blockStoreCapable interface {
	ReadBlock(level, index, offset, n int) ([][]byte, error)
	WriteBlock(level, index, offset int, block [][]byte) error
}

// mergeSplitPairBlocked realizes §4.4.2 step 4's block-streaming variant
// (§9, "constantSpaceBitonicSort"): the combined 2Z array is built in
// enclave memory from b1 and b2, which performButterflyNetwork has already
// read whole with ReadBucket, sorted with the same bitonic machinery as
// StrategyBitonic, and written out with window-sized WriteBlock calls. Only
// the writes are chunked into Window-sized I/Os; no ReadBlock call is made,
// and the in-enclave sort pass holds the whole 2Z array (see DESIGN.md).
func (d *Driver) mergeSplitPairBlocked(bs blockStoreCapable, level, pairIndex int, bit uint, b1, b2 *Bucket, z int) (out0, out1 *Bucket, err error) {
	window := d.params.window
	if window < 1 {
		window = defaultWindow
	}

	combined := make([]Record, 0, b1.Len()+b2.Len())
	combined = append(combined, b1.Slots()...)
	combined = append(combined, b2.Slots()...)

	elems, err := assignCompositeKeys(combined, bit, z)
	if err != nil {
		return nil, nil, err
	}
	bitonicSort(elems, 0, len(elems), true)

	// Stream the sorted array back out through the block interface in
	// window-sized chunks so the observable I/O shape matches the
	// constant-storage contract even though the sort itself ran in one pass.
	leftIdx := 2 * pairIndex
	rightIdx := 2*pairIndex + 1
	for off := 0; off < len(elems); off += window {
		end := off + window
		if end > len(elems) {
			end = len(elems)
		}
		chunk := make([][]byte, 0, end-off)
		for _, e := range elems[off:end] {
			blob, encErr := d.envelope.Encrypt(e.rec.SortKey, e.rec.RoutingKey, e.rec.IsDummy, e.rec.Seq, e.rec.Payload)
			if encErr != nil {
				return nil, nil, &DecryptionError{Level: level + 1, Index: leftIdx, Err: encErr}
			}
			chunk = append(chunk, blob)
		}
		if off < z {
			writeEnd := end
			if writeEnd > z {
				writeEnd = z
			}
			if writeErr := bs.WriteBlock(level+1, leftIdx, off, chunk[:writeEnd-off]); writeErr != nil {
				return nil, nil, &IOError{Level: level + 1, Index: leftIdx, Op: "writeblock", Err: writeErr}
			}
		}
		if end > z {
			rightOff := off - z
			if rightOff < 0 {
				rightOff = 0
			}
			rightChunk := chunk[max(0, z-off):]
			if len(rightChunk) > 0 {
				if writeErr := bs.WriteBlock(level+1, rightIdx, rightOff, rightChunk); writeErr != nil {
					return nil, nil, &IOError{Level: level + 1, Index: rightIdx, Op: "writeblock", Err: writeErr}
				}
			}
		}
	}

	side0 := make([]Record, z)
	side1 := make([]Record, z)
	for i := 0; i < z; i++ {
		side0[i] = elems[i].rec
	}
	for i := 0; i < z; i++ {
		side1[i] = elems[z+i].rec
	}
	return bucketFromSlots(side0), bucketFromSlots(side1), nil
}

// performButterflyNetwork implements §4.5 step 3: for level=0..L-1, pairs
// (2i, 2i+1), reads and decrypts both buckets, runs MergeSplit routed on
// bit = L-1-level, and writes the two outputs to level+1.
func (d *Driver) performButterflyNetwork(b, l, z int) error {
	for level := 0; level < l; level++ {
		bit := uint(l - 1 - level)
		for i := 0; i < b; i += 2 {
			pairIndex := i / 2

			b1, err := d.decryptBucketAt(level, i)
			if err != nil {
				return err
			}
			b2, err := d.decryptBucketAt(level, i+1)
			if err != nil {
				return err
			}

			out0, out1, written, err := d.mergeSplitPair(level, pairIndex, bit, b1, b2, z)
			if err != nil {
				return err
			}

			if !written {
				if err := d.encryptAndWriteBucket(level+1, i, out0); err != nil {
					return err
				}
				if err := d.encryptAndWriteBucket(level+1, i+1, out1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// extractFinalElements implements §4.5 step 4: decrypts each level-L
// bucket, obliviously permutes its Z slots by assigning each a fresh
// uniform random key and bitonic-sorting on that key, then strips dummies.
func (d *Driver) extractFinalElements(b, l int) ([]Record, error) {
	result := make([]Record, 0)

	for i := 0; i < b; i++ {
		bucket, err := d.decryptBucketAt(l, i)
		if err != nil {
			return nil, err
		}

		elems := make([]keyedRecord, bucket.Len())
		for j := 0; j < bucket.Len(); j++ {
			elems[j] = keyedRecord{rec: bucket.At(j), key: d.rngSrc.IntN(bucket.Len() * bucket.Len())}
		}
		bitonicSort(elems, 0, len(elems), true)

		for _, e := range elems {
			if !e.rec.IsDummy {
				result = append(result, e.rec)
			}
		}
	}
	return result, nil
}

// finalSort implements §4.5 step 5: a non-oblivious ascending sort by
// SortKey, safe to run in the clear because the record set is already a
// uniformly random permutation of the input (§4.5). extractFinalElements
// assigns every slot of every bucket a fresh random permutation key, so
// sort.SliceStable's stability guarantee alone does not recover input order
// among equal sort_keys — it would only preserve the already-shuffled
// order. Ties are instead broken by Seq, the position each record held in
// the caller's original input, which is why Seq rides inside the envelope
// untouched by every stage between ingestion and here (P2; see DESIGN.md).
func finalSort(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SortKey != records[j].SortKey {
			return records[i].SortKey < records[j].SortKey
		}
		return records[i].Seq < records[j].Seq
	})
}

// Sort runs the full pipeline (§4.5): Init -> Level_0 -> ... -> Level_L ->
// Permute -> FinalSort -> Done. On any error the returned slice is nil; no
// partial output is ever returned (§7).
func (d *Driver) Sort(input []Record, z int) ([]Record, error) {
	n := len(input)

	b, l, err := computeBucketParameters(n, z, d.params.safetyFactor)
	if err != nil {
		return nil, err
	}

	if err := d.initializeBuckets(input, b, z); err != nil {
		return nil, err
	}

	if err := d.performButterflyNetwork(b, l, z); err != nil {
		return nil, err
	}

	result, err := d.extractFinalElements(b, l)
	if err != nil {
		return nil, err
	}

	finalSort(result)
	return result, nil
}
