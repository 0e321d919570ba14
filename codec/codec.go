/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Feb 13 09:31:12 2019 mstenber
 * Last modified: Thu Feb 14 13:18:44 2019 mstenber
 * Edit time:     71 min
 *
 */

// codec library is responsible for transforming data + additionalData
// to different kind of data. This means in practise either
// encrypting/decrypting, or compressing/uncompressing on case-by-case
// basis. The block storage service uses it for the data it keeps at
// rest; nothing here touches the wire protocol.
//
// CodecChain makes it possible to combine multiple Codecs that do the
// particular sub-EncodeBytes/DecodeBytes steps.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"log"

	"github.com/fingon/go-hddfs/hdd"
	"github.com/golang/snappy"
	"github.com/minio/sha256-simd"
	"github.com/pierrec/lz4"
	"golang.org/x/crypto/pbkdf2"
)

// Codec
//
// Single transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

var ErrCorrupt = errors.New("corrupt codec data")

// EncryptingCodec
//
// AES GCM based encrypting/decrypting (+authenticating) Codec. The
// key is derived from password and salt with PBKDF2-SHA256.
type EncryptingCodec struct {
	gcm cipher.AEAD
	// Main key
	mk []byte
}

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	self.mk = pbkdf2.Key(password, salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(self.mk)
	if err != nil {
		log.Panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Panic(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed EncryptedData
	if err = Unmarshal(data, &ed); err != nil {
		return
	}
	if len(ed.Nonce) != self.gcm.NonceSize() {
		return nil, ErrCorrupt
	}
	return self.gcm.Open(nil, ed.Nonce, ed.EncryptedData, additionalData)
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ciphertext := self.gcm.Seal(nil, nonce, data, additionalData)
	return Marshal(&EncryptedData{Nonce: nonce, EncryptedData: ciphertext})
}

// CompressingCodec
//
// On-the-fly compressing Codec. If the result does not improve, the
// result is marked to be plaintext and passed as-is (at cost of few
// bytes of envelope). Type chooses the algorithm used when encoding
// (LZ4 if unset); decoding handles whatever is in the envelope.
type CompressingCodec struct {
	Type CompressionType
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var cd CompressedData
	if err = Unmarshal(data, &cd); err != nil {
		return
	}
	if cd.OriginalSize < 0 || cd.OriginalSize > hdd.ProtocolMaxBlockSize {
		return nil, ErrCorrupt
	}
	switch cd.CompressionType {
	case CompressionType_PLAIN:
		ret = cd.RawData
	case CompressionType_LZ4:
		ret = make([]byte, cd.OriginalSize)
		var n int
		n, err = lz4.UncompressBlock(cd.RawData, ret)
		if err != nil {
			return nil, err
		}
		if n != cd.OriginalSize {
			return nil, ErrCorrupt
		}
	case CompressionType_SNAPPY:
		ret, err = snappy.Decode(nil, cd.RawData)
		if err == nil && len(ret) != cd.OriginalSize {
			return nil, ErrCorrupt
		}
	default:
		err = fmt.Errorf("unsupported compression type %d", cd.CompressionType)
	}
	return
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ct := self.Type
	var rd []byte
	switch ct {
	case CompressionType_SNAPPY:
		rd = snappy.Encode(nil, data)
	case CompressionType_UNSET, CompressionType_LZ4:
		ct = CompressionType_LZ4
		rd = make([]byte, lz4.CompressBlockBound(len(data)))
		var n int
		n, err = lz4.CompressBlock(data, rd, make([]int, 1<<16))
		if err != nil {
			return
		}
		rd = rd[:n]
	case CompressionType_PLAIN:
	default:
		return nil, fmt.Errorf("unsupported compression type %d", ct)
	}
	if len(rd) == 0 || len(rd) >= len(data) {
		ct = CompressionType_PLAIN
		rd = data
	}
	return Marshal(&CompressedData{CompressionType: ct,
		OriginalSize: len(data), RawData: rd})
}

type CodecChain struct {
	codecs, reverseCodecs []Codec
}

// Init method initializes the codec chain.
//
// codecs are given in decryption order, so e.g.
// encrypting one should be given before compressing one.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	rc := make([]Codec, len(codecs))
	for i, c := range codecs {
		rc[len(codecs)-i-1] = c
	}
	self.reverseCodecs = rc
	return &self
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}
