// Copyright (c) 2024 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeInteriorRoundTrip(t *testing.T) {
	is := assert.New(t)

	buf := encodeInterior(42, 7, false, 3, []byte("hello"))
	sortKey, routingKey, isDummy, seq, payload, err := decodeInterior(buf)
	is.NoError(err)
	is.Equal(int32(42), sortKey)
	is.Equal(int32(7), routingKey)
	is.False(isDummy)
	is.Equal(int32(3), seq)
	is.Equal("hello", string(payload))
}

func TestEncodeDecodeInteriorEmptyPayload(t *testing.T) {
	is := assert.New(t)

	buf := encodeInterior(0, 0, true, 0, nil)
	_, _, isDummy, seq, payload, err := decodeInterior(buf)
	is.NoError(err)
	is.True(isDummy)
	is.Equal(int32(0), seq)
	is.Empty(payload)
}

func TestEncodeInteriorLayout(t *testing.T) {
	is := assert.New(t)

	buf := encodeInterior(1, 2, true, 9, []byte("ab"))
	is.Equal(byte(1), buf[0])
	is.Equal(byte(0), buf[1])
	is.Equal(byte(2), buf[4])
	is.Equal(byte(1), buf[8])
	is.Equal(byte(9), buf[9])
	is.Equal(byte(2), buf[13])
	is.Equal([]byte("ab"), buf[17:])
}

func TestDecodeInteriorRejectsTruncatedHeader(t *testing.T) {
	is := assert.New(t)

	_, _, _, _, _, err := decodeInterior(make([]byte, 5))
	is.Error(err)
}

func TestDecodeInteriorRejectsTruncatedPayload(t *testing.T) {
	is := assert.New(t)

	buf := encodeInterior(1, 2, false, 0, []byte("hello"))
	_, _, _, _, _, err := decodeInterior(buf[:len(buf)-2])
	is.Error(err)
}
