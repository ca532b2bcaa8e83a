// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cipher

import (
	"encoding/binary"
	"fmt"
)

// interiorHeaderSize is the fixed prefix of the record serialization format
// (sort_key, routing_key, is_dummy, seq, payload_len), before the variable
// length payload. seq extends the base envelope interior so finalSort can
// break sort_key ties by original input order (P2) without weakening the
// oblivious permutation extractFinalElements applies beforehand.
const interiorHeaderSize = 4 + 4 + 1 + 4 + 4

// encodeInterior serializes a record's logical fields to the little-endian
// layout specified for the envelope interior:
//
//	offset 0  : i32  sort_key
//	offset 4  : i32  routing_key
//	offset 8  : u8   is_dummy (0 or 1)
//	offset 9  : i32  seq
//	offset 13 : u32  payload_len
//	offset 17 : byte[payload_len] payload
func encodeInterior(sortKey, routingKey int32, isDummy bool, seq int32, payload []byte) []byte {
	buf := make([]byte, interiorHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sortKey))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(routingKey))
	if isDummy {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint32(buf[9:13], uint32(seq))
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(payload)))
	copy(buf[17:], payload)
	return buf
}

// decodeInterior reverses encodeInterior. It is strict about truncation:
// any malformed or short buffer is a decryption failure (§4.2 "Failure").
func decodeInterior(data []byte) (sortKey, routingKey int32, isDummy bool, seq int32, payload []byte, err error) {
	if len(data) < interiorHeaderSize {
		return 0, 0, false, 0, nil, fmt.Errorf("cipher: truncated envelope: want at least %d bytes, have %d", interiorHeaderSize, len(data))
	}
	sortKey = int32(binary.LittleEndian.Uint32(data[0:4]))
	routingKey = int32(binary.LittleEndian.Uint32(data[4:8]))
	isDummy = data[8] != 0
	seq = int32(binary.LittleEndian.Uint32(data[9:13]))
	payloadLen := binary.LittleEndian.Uint32(data[13:17])
	rest := data[17:]
	if uint64(len(rest)) < uint64(payloadLen) {
		return 0, 0, false, 0, nil, fmt.Errorf("cipher: truncated payload: want %d bytes, have %d", payloadLen, len(rest))
	}
	payload = make([]byte, payloadLen)
	copy(payload, rest[:payloadLen])
	return sortKey, routingKey, isDummy, seq, payload, nil
}
