/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Feb 11 09:12:40 2019 mstenber
 * Last modified: Wed Feb 13 17:02:11 2019 mstenber
 * Edit time:     94 min
 *
 */

// hdd package describes the wire protocol spoken with the block
// storage service: single 64-bit command and response words, and the
// constants shared by both ends.
//
// Word layout (most significant bit first):
//
//	| Op (2) | BlockSize (26) | Flag (3) | Result (1) | BlockId (32) |
//
// Encoding does not validate anything; values wider than their field
// are silently truncated. Callers that care (e.g. fileio) check the
// limits before building commands.
package hdd

import (
	"encoding/binary"
	"fmt"
)

type Op uint8

const (
	// OpDevice shares the value with OpCreateBlock; the flag
	// tells which one is meant.
	OpDevice         Op = 0
	OpCreateBlock    Op = 0
	OpReadBlock      Op = 1
	OpOverwriteBlock Op = 2
	OpDeleteBlock    Op = 3
)

var opNames = []string{"CreateBlock", "ReadBlock", "OverwriteBlock", "DeleteBlock"}

func (self Op) String() string {
	if int(self) < len(opNames) {
		return opNames[self]
	}
	return fmt.Sprintf("Op(%d)", uint8(self))
}

type Flag uint8

const (
	FlagNone Flag = iota
	FlagMetaBlock
	FlagFormat
	FlagSaveAndClose
	FlagInit
)

var flagNames = []string{"None", "MetaBlock", "Format", "SaveAndClose", "Init"}

func (self Flag) String() string {
	if int(self) < len(flagNames) {
		return flagNames[self]
	}
	return fmt.Sprintf("Flag(%d)", uint8(self))
}

// IsDevice is true for flags that address the whole device rather
// than a block.
func (self Flag) IsDevice() bool {
	return self == FlagFormat || self == FlagSaveAndClose || self == FlagInit
}

type BlockId uint32

const NoBlock BlockId = 0

// MetaBlockId is the id the service hands out to the first block
// created after format, which by convention is the meta block.
const MetaBlockId BlockId = 1

const (
	resultSuccess = 0
	resultFailure = 1
)

// Field widths and offsets of the word.
const (
	blockIdBits   = 32
	resultBits    = 1
	flagBits      = 3
	blockSizeBits = 26
	opBits        = 2

	blockIdShift   = 0
	resultShift    = blockIdShift + blockIdBits
	flagShift      = resultShift + resultBits
	blockSizeShift = flagShift + flagBits
	opShift        = blockSizeShift + blockSizeBits
)

const (
	blockIdMask   = 1<<blockIdBits - 1
	resultMask    = 1<<resultBits - 1
	flagMask      = 1<<flagBits - 1
	blockSizeMask = 1<<blockSizeBits - 1
	opMask        = 1<<opBits - 1
)

// ProtocolMaxBlockSize is the largest size the BlockSize field can
// carry.
const ProtocolMaxBlockSize = blockSizeMask

// MaxBlockSize is the driver's own cap on block size; it is smaller
// than what the protocol could express.
const MaxBlockSize = 0xfffff

// WordSize is the number of bytes a command or response takes on the
// wire.
const WordSize = 8

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 19876
	DefaultAddress = "127.0.0.1:19876"
	DefaultFamily  = "tcp"
)

func EncodeCommand(op Op, flag Flag, bid BlockId, size uint32) uint64 {
	return encode(op, flag, resultSuccess, bid, size)
}

func encode(op Op, flag Flag, result uint8, bid BlockId, size uint32) uint64 {
	w := (uint64(op) & opMask) << opShift
	w |= (uint64(size) & blockSizeMask) << blockSizeShift
	w |= (uint64(flag) & flagMask) << flagShift
	w |= (uint64(result) & resultMask) << resultShift
	w |= (uint64(bid) & blockIdMask) << blockIdShift
	return w
}

func DecodeOp(w uint64) Op {
	return Op((w >> opShift) & opMask)
}

func DecodeFlag(w uint64) Flag {
	return Flag((w >> flagShift) & flagMask)
}

func DecodeResult(w uint64) uint8 {
	return uint8((w >> resultShift) & resultMask)
}

func DecodeBlockId(w uint64) BlockId {
	return BlockId((w >> blockIdShift) & blockIdMask)
}

func DecodeBlockSize(w uint64) uint32 {
	return uint32((w >> blockSizeShift) & blockSizeMask)
}

// Command is the typed form of a command word.
type Command struct {
	Op        Op
	Flag      Flag
	BlockId   BlockId
	BlockSize uint32
}

func (self Command) Encode() uint64 {
	return EncodeCommand(self.Op, self.Flag, self.BlockId, self.BlockSize)
}

func DecodeCommand(w uint64) Command {
	return Command{Op: DecodeOp(w), Flag: DecodeFlag(w),
		BlockId: DecodeBlockId(w), BlockSize: DecodeBlockSize(w)}
}

// HasPayload is true if BlockSize bytes of data follow the command
// word on the wire.
func (self Command) HasPayload() bool {
	if self.Op != OpCreateBlock && self.Op != OpOverwriteBlock {
		return false
	}
	return self.Flag == FlagNone || self.Flag == FlagMetaBlock
}

func (self Command) String() string {
	if self.Op == OpDevice && self.Flag.IsDevice() {
		return fmt.Sprintf("Device(%v)", self.Flag)
	}
	return fmt.Sprintf("%v(id:%d size:%d flag:%v)",
		self.Op, self.BlockId, self.BlockSize, self.Flag)
}

// Response is the typed form of a response word. Op equal to
// OpReadBlock means BlockSize bytes of payload follow.
type Response struct {
	Op        Op
	Flag      Flag
	Failed    bool
	BlockId   BlockId
	BlockSize uint32
}

func (self Response) Encode() uint64 {
	var result uint8 = resultSuccess
	if self.Failed {
		result = resultFailure
	}
	return encode(self.Op, self.Flag, result, self.BlockId, self.BlockSize)
}

func DecodeResponse(w uint64) Response {
	return Response{Op: DecodeOp(w), Flag: DecodeFlag(w),
		Failed:  DecodeResult(w) == resultFailure,
		BlockId: DecodeBlockId(w), BlockSize: DecodeBlockSize(w)}
}

func (self Response) HasPayload() bool {
	return self.Op == OpReadBlock
}

func (self Response) String() string {
	status := "ok"
	if self.Failed {
		status = "failed"
	}
	return fmt.Sprintf("%v(id:%d size:%d flag:%v) %s",
		self.Op, self.BlockId, self.BlockSize, self.Flag, status)
}

// PutWord stores w in network byte order to b, which must be at least
// WordSize long.
func PutWord(b []byte, w uint64) {
	binary.BigEndian.PutUint64(b, w)
}

func Word(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
