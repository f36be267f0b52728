// Package layout declares the on-disk format: compile-time geometry
// constants and the packed little-endian record shapes for the superblock,
// inodes, and directory entries, together with their encoders and decoders.
//
// Nothing in this package touches a disk; it converts between in-memory
// records and block-sized byte slices and is the single place where
// endianness and padding are spelled out.
package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// BlockSize is the unit of all disk I/O, in bytes.
const BlockSize = 4096

// DirectPtrs is the number of direct block pointers in one inode.
const DirectPtrs = 30

// MaxName is the on-disk size of a directory entry name. Names are
// null-terminated, so the longest usable name is MaxName-1 bytes.
const MaxName = 28

// RootInode is the inode number of the root directory.
const RootInode = 0

// Inode type tags.
const (
	RegularFile int32 = 0
	Directory   int32 = 1
)

const (
	SuperSize  = 40
	InodeSize  = 8 + 4*DirectPtrs
	DirEntSize = 4 + MaxName

	InodesPerBlock  = BlockSize / InodeSize
	DirentsPerBlock = BlockSize / DirEntSize

	// MaxFileSize is the largest content an inode can address.
	MaxFileSize = DirectPtrs * BlockSize
)

// Super is the superblock, stored at offset 0 of block 0. All addresses and
// lengths are in blocks; NumInodes and NumData are entity counts.
type Super struct {
	InodeBitmapAddr int32
	InodeBitmapLen  int32
	DataBitmapAddr  int32
	DataBitmapLen   int32
	InodeRegionAddr int32
	InodeRegionLen  int32
	DataRegionAddr  int32
	DataRegionLen   int32
	NumInodes       int32
	NumData         int32
}

// Inode describes one file or directory. Direct pointers are offsets
// relative to Super.DataRegionAddr, never absolute block addresses.
type Inode struct {
	Type   int32
	Size   int32
	Direct [DirectPtrs]uint32
}

// DirEnt is one fixed-size directory entry: an inode index followed by a
// zero-padded name.
type DirEnt struct {
	Inum int32
	Name [MaxName]byte
}

// EncodeSuper serializes the superblock into a block-sized buffer. The
// bytes past the record are zero.
func EncodeSuper(super Super) []byte {
	buffer := make([]byte, BlockSize)
	writer := bytewriter.New(buffer)
	binary.Write(writer, binary.LittleEndian, &super)
	return buffer
}

// DecodeSuper deserializes a superblock from the beginning of `data`.
func DecodeSuper(data []byte) Super {
	var super Super
	binary.Read(bytes.NewReader(data), binary.LittleEndian, &super)
	return super
}

// EncodeInodeRegion packs `inodes` tightly in ascending index order into a
// whole number of blocks. Unused tail bytes in the last block are zero.
func EncodeInodeRegion(inodes []Inode) []byte {
	numBlocks := (len(inodes) + InodesPerBlock - 1) / InodesPerBlock
	buffer := make([]byte, numBlocks*BlockSize)
	writer := bytewriter.New(buffer)
	for i := range inodes {
		binary.Write(writer, binary.LittleEndian, &inodes[i])
	}
	return buffer
}

// DecodeInodeRegion unpacks `count` inodes from the raw inode region bytes.
func DecodeInodeRegion(data []byte, count int) []Inode {
	inodes := make([]Inode, count)
	reader := bytes.NewReader(data)
	for i := 0; i < count; i++ {
		binary.Read(reader, binary.LittleEndian, &inodes[i])
	}
	return inodes
}

// EncodeDirEnts packs directory entries tightly. The result is NOT padded
// to a block boundary; callers append it into block-sized buffers.
func EncodeDirEnts(entries []DirEnt) []byte {
	buffer := make([]byte, len(entries)*DirEntSize)
	writer := bytewriter.New(buffer)
	for i := range entries {
		binary.Write(writer, binary.LittleEndian, &entries[i])
	}
	return buffer
}

// DecodeDirEnts unpacks `count` directory entries from `data`.
func DecodeDirEnts(data []byte, count int) []DirEnt {
	entries := make([]DirEnt, count)
	reader := bytes.NewReader(data)
	for i := 0; i < count; i++ {
		binary.Read(reader, binary.LittleEndian, &entries[i])
	}
	return entries
}

// NameToBytes converts a name string to its fixed-size zero-padded on-disk
// form. The name must be at most MaxName-1 bytes; longer names are rejected
// by the filesystem before this point.
func NameToBytes(name string) [MaxName]byte {
	var raw [MaxName]byte
	copy(raw[:], name)
	return raw
}

// NameString returns the name stored in a directory entry, up to the first
// NUL byte.
func (ent DirEnt) NameString() string {
	raw := ent.Name[:]
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		raw = raw[:idx]
	}
	return string(raw)
}

// NameMatches reports whether the entry's stored name equals `name`,
// comparing byte-for-byte up to the first NUL on both sides.
func (ent DirEnt) NameMatches(name string) bool {
	return ent.NameString() == name
}

// SizeToBlocks returns the number of data blocks needed to hold `size`
// bytes of content.
func SizeToBlocks(size int) int {
	return (size + BlockSize - 1) / BlockSize
}
