// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package obucketsort

// routingBit extracts bit `bit` (0 = least significant) of a record's
// routing key, which selects the MergeSplit output side at a given level
// (§4.4: "level ℓ routes on bit L-1-ℓ").
func routingBit(routingKey int32, bit uint) int32 {
	return (routingKey >> bit) & 1
}

// partitionAndPad is the simple MergeSplit realization (§4.4.1). Its
// in-enclave access pattern depends on which element is real vs dummy, so
// it is only acceptable when the adversary observes the untrusted store
// and not enclave memory — the same tradeoff spec.md calls out.
func partitionAndPad(b1, b2 *Bucket, bit uint, z int) (out0, out1 *Bucket, err error) {
	combined := make([]Record, 0, b1.Len()+b2.Len())
	combined = append(combined, b1.Slots()...)
	combined = append(combined, b2.Slots()...)

	side0 := make([]Record, 0, z)
	side1 := make([]Record, 0, z)
	for _, r := range combined {
		if r.IsDummy {
			continue
		}
		if routingBit(r.RoutingKey, bit) == 0 {
			side0 = append(side0, r)
		} else {
			side1 = append(side1, r)
		}
	}

	if len(side0) > z {
		return nil, nil, &BucketOverflowError{Side: OverflowSideZero, Count: len(side0), Capacity: z}
	}
	if len(side1) > z {
		return nil, nil, &BucketOverflowError{Side: OverflowSideOne, Count: len(side1), Capacity: z}
	}

	for len(side0) < z {
		side0 = append(side0, dummyRecord())
	}
	for len(side1) < z {
		side1 = append(side1, dummyRecord())
	}

	return bucketFromSlots(side0), bucketFromSlots(side1), nil
}
