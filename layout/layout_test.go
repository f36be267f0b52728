package layout_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunrock-web/ds3fs/layout"
)

func TestDerivedConstants(t *testing.T) {
	assert.EqualValues(t, 128, layout.InodeSize, "inode record size is wrong")
	assert.EqualValues(t, 32, layout.DirEntSize, "directory entry size is wrong")
	assert.EqualValues(t, 32, layout.InodesPerBlock)
	assert.EqualValues(t, 128, layout.DirentsPerBlock)

	// Entries must never straddle block boundaries.
	assert.Zero(t, layout.BlockSize%layout.DirEntSize)
	assert.Zero(t, layout.BlockSize%layout.InodeSize)
}

func TestSuperRoundTrip(t *testing.T) {
	super := layout.Super{
		InodeBitmapAddr: 1,
		InodeBitmapLen:  1,
		DataBitmapAddr:  2,
		DataBitmapLen:   1,
		InodeRegionAddr: 3,
		InodeRegionLen:  2,
		DataRegionAddr:  5,
		DataRegionLen:   120,
		NumInodes:       64,
		NumData:         120,
	}

	block := layout.EncodeSuper(super)
	require.Len(t, block, layout.BlockSize)
	assert.Equal(t, super, layout.DecodeSuper(block))

	// The remainder of block 0 is zero.
	for _, b := range block[layout.SuperSize:] {
		require.Zero(t, b, "superblock padding must be zero")
	}
}

func TestDirEntWireFormat(t *testing.T) {
	entry := layout.DirEnt{Inum: 0x01020304, Name: layout.NameToBytes("a.txt")}
	raw := layout.EncodeDirEnts([]layout.DirEnt{entry})
	require.Len(t, raw, layout.DirEntSize)

	// 4-byte little-endian inum followed by the zero-padded name.
	assert.EqualValues(t, 0x01020304, binary.LittleEndian.Uint32(raw[:4]))
	assert.Equal(t, byte('a'), raw[4])
	assert.Equal(t, byte('t'), raw[8])
	for _, b := range raw[9:] {
		assert.Zero(t, b, "name padding must be zero")
	}
}

func TestInodeRegionPacking(t *testing.T) {
	inodes := make([]layout.Inode, layout.InodesPerBlock+1)
	inodes[0] = layout.Inode{Type: layout.Directory, Size: 64}
	inodes[0].Direct[0] = 7
	inodes[layout.InodesPerBlock] = layout.Inode{Type: layout.RegularFile, Size: 5}

	raw := layout.EncodeInodeRegion(inodes)
	require.Len(t, raw, 2*layout.BlockSize, "region must round up to whole blocks")

	decoded := layout.DecodeInodeRegion(raw, len(inodes))
	assert.Equal(t, inodes, decoded)
}

func TestNameMatching(t *testing.T) {
	entry := layout.DirEnt{Inum: 3, Name: layout.NameToBytes("notes")}

	assert.Equal(t, "notes", entry.NameString())
	assert.True(t, entry.NameMatches("notes"))
	assert.False(t, entry.NameMatches("note"))
	assert.False(t, entry.NameMatches("notes2"))
}

func TestSizeToBlocks(t *testing.T) {
	assert.Equal(t, 0, layout.SizeToBlocks(0))
	assert.Equal(t, 1, layout.SizeToBlocks(1))
	assert.Equal(t, 1, layout.SizeToBlocks(layout.BlockSize))
	assert.Equal(t, 2, layout.SizeToBlocks(layout.BlockSize+1))
}
