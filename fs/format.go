package fs

import (
	"fmt"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/alloc"
	"github.com/gunrock-web/ds3fs/disk"
	"github.com/gunrock-web/ds3fs/layout"
)

func bitmapBlocks(bits int) int {
	return (bits + layout.BlockSize*8 - 1) / (layout.BlockSize * 8)
}

// Geometry computes the superblock for a filesystem with the given entity
// counts: superblock, inode bitmap, data bitmap, inode region, and data
// region laid out back to back from block 0.
func Geometry(numInodes, numData int) layout.Super {
	inodeBitmapLen := bitmapBlocks(numInodes)
	dataBitmapLen := bitmapBlocks(numData)
	inodeRegionLen := (numInodes*layout.InodeSize + layout.BlockSize - 1) / layout.BlockSize

	inodeBitmapAddr := 1
	dataBitmapAddr := inodeBitmapAddr + inodeBitmapLen
	inodeRegionAddr := dataBitmapAddr + dataBitmapLen
	dataRegionAddr := inodeRegionAddr + inodeRegionLen

	return layout.Super{
		InodeBitmapAddr: int32(inodeBitmapAddr),
		InodeBitmapLen:  int32(inodeBitmapLen),
		DataBitmapAddr:  int32(dataBitmapAddr),
		DataBitmapLen:   int32(dataBitmapLen),
		InodeRegionAddr: int32(inodeRegionAddr),
		InodeRegionLen:  int32(inodeRegionLen),
		DataRegionAddr:  int32(dataRegionAddr),
		DataRegionLen:   int32(numData),
		NumInodes:       int32(numInodes),
		NumData:         int32(numData),
	}
}

// RequiredBlocks returns the total image size, in blocks, that Format needs
// for the given entity counts.
func RequiredBlocks(numInodes, numData int) int {
	super := Geometry(numInodes, numData)
	return int(super.DataRegionAddr) + numData
}

// Format writes a fresh filesystem onto the disk: superblock, bitmaps with
// only the root directory allocated, the inode region with the root
// directory inode, and the root's data block holding its "." and ".."
// entries. Everything else is zeroed.
func Format(d *disk.Disk, numInodes, numData int) error {
	if numInodes <= 0 || numData <= 0 {
		return ds3fs.ErrInvalidSize.WithMessage(
			fmt.Sprintf("need positive entity counts, got %d inodes and %d data blocks",
				numInodes, numData))
	}

	super := Geometry(numInodes, numData)
	if RequiredBlocks(numInodes, numData) > d.NumBlocks() {
		return ds3fs.ErrNoSpace.WithMessage(
			fmt.Sprintf("image has %d blocks but the layout needs %d",
				d.NumBlocks(), RequiredBlocks(numInodes, numData)))
	}

	if err := d.WriteBlock(0, layout.EncodeSuper(super)); err != nil {
		return err
	}

	filesystem := New(d)

	inodeBitmap := make([]byte, int(super.InodeBitmapLen)*layout.BlockSize)
	alloc.Set(inodeBitmap, layout.RootInode)
	if err := filesystem.WriteInodeBitmap(super, inodeBitmap); err != nil {
		return err
	}

	dataBitmap := make([]byte, int(super.DataBitmapLen)*layout.BlockSize)
	alloc.Set(dataBitmap, 0)
	if err := filesystem.WriteDataBitmap(super, dataBitmap); err != nil {
		return err
	}

	inodes := make([]layout.Inode, numInodes)
	inodes[layout.RootInode] = layout.Inode{
		Type: layout.Directory,
		Size: 2 * layout.DirEntSize,
	}
	if err := filesystem.WriteInodeRegion(super, inodes); err != nil {
		return err
	}

	rootBlock := make([]byte, layout.BlockSize)
	copy(rootBlock, layout.EncodeDirEnts([]layout.DirEnt{
		{Inum: layout.RootInode, Name: layout.NameToBytes(".")},
		{Inum: layout.RootInode, Name: layout.NameToBytes("..")},
	}))
	if err := d.WriteBlock(int(super.DataRegionAddr), rootBlock); err != nil {
		return err
	}

	zero := make([]byte, layout.BlockSize)
	for blockNum := 1; blockNum < numData; blockNum++ {
		if err := d.WriteBlock(int(super.DataRegionAddr)+blockNum, zero); err != nil {
			return err
		}
	}
	return nil
}
