// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package obucketsort

// keyedRecord pairs a record with a transient sort label used only to drive
// one bitonic-network pass. It backs both the MergeSplit composite-key
// assignment (§4.4.2) and the extraction-time oblivious permutation
// (§4.5 step 4): in neither case does the label outlive the call — real
// records keep their original RoutingKey intact for the next level's bit
// test, and dummies carry no information worth preserving (I5).
type keyedRecord struct {
	rec Record
	key int
}

// assignCompositeKeys implements §4.4.2 steps 1-3: count real records per
// target bit, fail on overflow, and assign each element a composite key in
// {0,1,2,3} such that an ascending sort by key places exactly Z elements
// (the bit=0 output, values 0 and 1) before exactly Z elements (the bit=1
// output, values 2 and 3).
func assignCompositeKeys(combined []Record, bit uint, z int) ([]keyedRecord, error) {
	count0, count1 := 0, 0
	for _, r := range combined {
		if r.IsDummy {
			continue
		}
		if routingBit(r.RoutingKey, bit) == 0 {
			count0++
		} else {
			count1++
		}
	}
	if count0 > z {
		return nil, &BucketOverflowError{Side: OverflowSideZero, Count: count0, Capacity: z}
	}
	if count1 > z {
		return nil, &BucketOverflowError{Side: OverflowSideOne, Count: count1, Capacity: z}
	}
	need0 := z - count0

	out := make([]keyedRecord, len(combined))
	dummiesSeen := 0
	for i, r := range combined {
		if !r.IsDummy {
			out[i] = keyedRecord{rec: r, key: int(routingBit(r.RoutingKey, bit)) << 1}
			continue
		}
		// Deterministic by scan order (§4.4.2): the first need0 dummies
		// backfill output 0, the rest backfill output 1, regardless of
		// which input bucket or position they came from.
		if dummiesSeen < need0 {
			out[i] = keyedRecord{rec: r, key: 1}
		} else {
			out[i] = keyedRecord{rec: r, key: 3}
		}
		dummiesSeen++
	}
	return out, nil
}

// bitonicMergeSplit is the bitonic-network MergeSplit realization (§4.4.2)
// run on the whole 2Z array in memory: composite-key assignment followed by
// an ascending bitonic sort, split into two Z-sized halves.
func bitonicMergeSplit(b1, b2 *Bucket, bit uint, z int) (out0, out1 *Bucket, err error) {
	combined := make([]Record, 0, b1.Len()+b2.Len())
	combined = append(combined, b1.Slots()...)
	combined = append(combined, b2.Slots()...)

	elems, err := assignCompositeKeys(combined, bit, z)
	if err != nil {
		return nil, nil, err
	}

	bitonicSort(elems, 0, len(elems), true)

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

// bitonicSort sorts a[lo:lo+n] by composite key, ascending if dir is true,
// descending otherwise. It is the classical generalized network (Batcher's
// construction extended to non-power-of-two n via greatestPowerOfTwoLE),
// recursive depth log2(n) as §9 notes is acceptable; an iterative
// formulation would preserve the same access pattern.
func bitonicSort(a []keyedRecord, lo, n int, dir bool) {
	if n <= 1 {
		return
	}
	m := n / 2
	bitonicSort(a, lo, m, !dir)
	bitonicSort(a, lo+m, n-m, dir)
	bitonicMerge(a, lo, n, dir)
}

// bitonicMerge merges a bitonic sequence a[lo:lo+n] into sorted order.
func bitonicMerge(a []keyedRecord, lo, n int, dir bool) {
	if n <= 1 {
		return
	}
	m := greatestPowerOfTwoLE(n)
	for i := lo; i < lo+n-m; i++ {
		compareExchange(a, i, i+m, dir)
	}
	bitonicMerge(a, lo, m, dir)
	bitonicMerge(a, lo+m, n-m, dir)
}

// compareExchange swaps a[i] and a[j] when they are out of order for the
// given direction. Ties are preserved left-biased: equal keys never swap
// (§4.4.2, "Ordering and tie-breaks").
func compareExchange(a []keyedRecord, i, j int, ascending bool) {
	if ascending {
		if a[i].key > a[j].key {
			a[i], a[j] = a[j], a[i]
		}
	} else {
		if a[i].key < a[j].key {
			a[i], a[j] = a[j], a[i]
		}
	}
}

// greatestPowerOfTwoLE returns the largest power of two strictly less than
// n (used to split a non-power-of-two bitonic sequence for merging).
func greatestPowerOfTwoLE(n int) int {
	k := 1
	for k < n {
		k <<= 1
	}
	return k >> 1
}
