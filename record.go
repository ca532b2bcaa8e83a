// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package obucketsort

// Record is a single sortable element flowing through the engine.
//
// SortKey is the comparator field the caller wants sorted. RoutingKey is
// assigned by the core at ingestion and never exposed to the caller; it is
// only meaningful within MergeSplit. IsDummy marks a placeholder used to
// keep bucket occupancy constant; dummies carry no real SortKey or Payload
// (I5). Seq is the record's position in the caller's original input,
// assigned once at ingestion and carried through every re-encryption; it
// never participates in routing or comparison except as finalSort's
// tiebreaker, which is what lets P2 hold despite the oblivious permutation
// extractFinalElements applies to every bucket (see DESIGN.md).
type Record struct {
	SortKey    int32
	Payload    []byte
	RoutingKey int32
	IsDummy    bool
	Seq        int32
}

// dummyRecord returns a fresh, zero-valued dummy (§3: sort_key=0,
// payload="", is_dummy=true). RoutingKey is assigned transiently by
// MergeSplit and is left unset here.
func dummyRecord() Record {
	return Record{IsDummy: true}
}

// Bucket is an ordered sequence of exactly Len() records, real and dummy
// mixed (I1). A bucket never changes size once constructed.
type Bucket struct {
	slots []Record
}

// NewBucket allocates a bucket of capacity z, every slot a dummy.
func NewBucket(z int) *Bucket {
	slots := make([]Record, z)
	for i := range slots {
		slots[i] = dummyRecord()
	}
	return &Bucket{slots: slots}
}

// bucketFromSlots wraps an existing Z-length slice without copying;
// callers must not mutate slots afterwards through another reference.
func bucketFromSlots(slots []Record) *Bucket {
	return &Bucket{slots: slots}
}

// Len returns the bucket capacity Z.
func (b *Bucket) Len() int { return len(b.slots) }

// At returns the record in slot i.
func (b *Bucket) At(i int) Record { return b.slots[i] }

// Set replaces the record in slot i.
func (b *Bucket) Set(i int, r Record) { b.slots[i] = r }

// Slots returns the bucket's backing slice. Callers that need to retain it
// beyond the current call should Clone first.
func (b *Bucket) Slots() []Record { return b.slots }

// Clone returns a deep-enough copy (slot values and their Payload bytes are
// copied; nothing in Record contains further indirection worth sharing).
func (b *Bucket) Clone() *Bucket {
	out := make([]Record, len(b.slots))
	for i, r := range b.slots {
		if r.Payload != nil {
			p := make([]byte, len(r.Payload))
			copy(p, r.Payload)
			r.Payload = p
		}
		out[i] = r
	}
	return &Bucket{slots: out}
}

// RealCount returns the number of non-dummy records in the bucket.
func (b *Bucket) RealCount() int {
	n := 0
	for _, r := range b.slots {
		if !r.IsDummy {
			n++
		}
	}
	return n
}
