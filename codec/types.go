/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 10:02:40 2019 mstenber
 * Last modified: Wed Feb 13 11:47:03 2019 mstenber
 * Edit time:     22 min
 *
 */

package codec

import (
	"fmt"

	ugorji "github.com/ugorji/go/codec"
)

// These are the envelopes the codecs wrap the data in. They are
// persisted as msgpack arrays.

type EncryptedData struct {
	_struct struct{} `codec:",toarray"`

	// Nonce used for AES GCM
	Nonce []byte

	// EncryptedData is AES GCM encrypted (and authenticated) payload
	EncryptedData []byte
}

type CompressionType byte

const (
	CompressionType_UNSET CompressionType = iota

	// The data has not been compressed.
	CompressionType_PLAIN

	// The data is compressed with LZ4 (block format).
	CompressionType_LZ4

	// The data is compressed with Snappy.
	CompressionType_SNAPPY
)

func (self CompressionType) String() string {
	switch self {
	case CompressionType_PLAIN:
		return "plain"
	case CompressionType_LZ4:
		return "lz4"
	case CompressionType_SNAPPY:
		return "snappy"
	}
	return "unset"
}

// ParseCompressionType is the inverse of String.
func ParseCompressionType(s string) (CompressionType, error) {
	for ct := CompressionType_UNSET; ct <= CompressionType_SNAPPY; ct++ {
		if ct.String() == s {
			return ct, nil
		}
	}
	return CompressionType_UNSET, fmt.Errorf("unknown compression type %q", s)
}

type CompressedData struct {
	_struct struct{} `codec:",toarray"`

	// CompressionType describes how the data has been compressed.
	CompressionType CompressionType

	// OriginalSize is the length of the data before compression.
	OriginalSize int

	// RawData is the (possibly compressed) data of the client
	RawData []byte
}

var msgpackHandle ugorji.MsgpackHandle

// Marshal encodes v as msgpack. It is also used by storage backends
// for their metadata records.
func Marshal(v interface{}) (b []byte, err error) {
	err = ugorji.NewEncoderBytes(&b, &msgpackHandle).Encode(v)
	return
}

func Unmarshal(b []byte, v interface{}) error {
	return ugorji.NewDecoderBytes(b, &msgpackHandle).Decode(v)
}
