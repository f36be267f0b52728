// Package fs implements the filesystem proper: directory and file
// operations atop the disk, layout, and alloc packages.
//
// Every operation reads the superblock and the bitmaps it needs into fresh
// buffers and writes them back at commit. No mutable state is cached across
// calls, so a rolled-back operation leaves nothing behind.
package fs

import (
	"fmt"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/alloc"
	"github.com/gunrock-web/ds3fs/disk"
	"github.com/gunrock-web/ds3fs/layout"
)

// FileSystem performs file and directory operations against one Disk. It
// holds no other state. It is not safe for concurrent use; hosts serialize
// access with one coarse mutex around every call.
type FileSystem struct {
	disk *disk.Disk
}

// New creates a filesystem over an already-formatted disk.
func New(d *disk.Disk) *FileSystem {
	return &FileSystem{disk: d}
}

// Disk returns the underlying block device. Services use it to open a
// transaction spanning several filesystem calls.
func (f *FileSystem) Disk() *disk.Disk {
	return f.disk
}

// ReadSuperBlock reads and decodes block 0.
//
// Panics if the backing device is smaller than the superblock claims; that
// is a disk-layout bug the caller is responsible for preventing.
func (f *FileSystem) ReadSuperBlock() (layout.Super, error) {
	block, err := f.disk.ReadBlock(0)
	if err != nil {
		return layout.Super{}, err
	}

	super := layout.DecodeSuper(block)
	if int(super.DataRegionAddr)+int(super.DataRegionLen) > f.disk.NumBlocks() {
		panic(fmt.Sprintf(
			"disk image has %d blocks but the superblock claims %d",
			f.disk.NumBlocks(),
			int(super.DataRegionAddr)+int(super.DataRegionLen),
		))
	}
	return super, nil
}

func (f *FileSystem) readBitmap(addr, length int32) ([]byte, error) {
	buffer := make([]byte, 0, int(length)*layout.BlockSize)
	for blockNum := int32(0); blockNum < length; blockNum++ {
		block, err := f.disk.ReadBlock(int(addr + blockNum))
		if err != nil {
			return nil, err
		}
		buffer = append(buffer, block...)
	}
	return buffer, nil
}

func (f *FileSystem) writeBitmap(addr, length int32, bm []byte) error {
	for blockNum := int32(0); blockNum < length; blockNum++ {
		start := int(blockNum) * layout.BlockSize
		err := f.disk.WriteBlock(int(addr+blockNum), bm[start:start+layout.BlockSize])
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadInodeBitmap returns the inode allocation bitmap, one bit per inode,
// LSB-first within each byte.
func (f *FileSystem) ReadInodeBitmap(super layout.Super) ([]byte, error) {
	return f.readBitmap(super.InodeBitmapAddr, super.InodeBitmapLen)
}

// WriteInodeBitmap writes the inode allocation bitmap back to disk.
func (f *FileSystem) WriteInodeBitmap(super layout.Super, bm []byte) error {
	return f.writeBitmap(super.InodeBitmapAddr, super.InodeBitmapLen, bm)
}

// ReadDataBitmap returns the data block allocation bitmap.
func (f *FileSystem) ReadDataBitmap(super layout.Super) ([]byte, error) {
	return f.readBitmap(super.DataBitmapAddr, super.DataBitmapLen)
}

// WriteDataBitmap writes the data block allocation bitmap back to disk.
func (f *FileSystem) WriteDataBitmap(super layout.Super, bm []byte) error {
	return f.writeBitmap(super.DataBitmapAddr, super.DataBitmapLen, bm)
}

// ReadInodeRegion reads all inodes, packed tightly in ascending index
// order.
func (f *FileSystem) ReadInodeRegion(super layout.Super) ([]layout.Inode, error) {
	raw, err := f.readBitmap(super.InodeRegionAddr, super.InodeRegionLen)
	if err != nil {
		return nil, err
	}
	return layout.DecodeInodeRegion(raw, int(super.NumInodes)), nil
}

// WriteInodeRegion writes the whole inode table back to disk.
func (f *FileSystem) WriteInodeRegion(super layout.Super, inodes []layout.Inode) error {
	raw := layout.EncodeInodeRegion(inodes)
	for blockNum := int32(0); blockNum < super.InodeRegionLen; blockNum++ {
		start := int(blockNum) * layout.BlockSize
		err := f.disk.WriteBlock(int(super.InodeRegionAddr+blockNum), raw[start:start+layout.BlockSize])
		if err != nil {
			return err
		}
	}
	return nil
}

// checkInode validates that inum names an allocated inode.
func checkInode(super layout.Super, inodeBitmap []byte, inum int) error {
	if inum < 0 || inum >= int(super.NumInodes) {
		return ds3fs.ErrInvalidInode.WithMessage(
			fmt.Sprintf("inode %d not in [0, %d)", inum, super.NumInodes))
	}
	if !alloc.IsSet(inodeBitmap, inum) {
		return ds3fs.ErrInvalidInode.WithMessage(
			fmt.Sprintf("inode %d is not allocated", inum))
	}
	return nil
}

// contentBlocks returns how many data blocks back an inode. Even an empty
// inode owns one block: Create always hands out a first block, and Write
// never shrinks below it.
func contentBlocks(inode layout.Inode) int {
	blocks := layout.SizeToBlocks(int(inode.Size))
	if blocks == 0 {
		blocks = 1
	}
	return blocks
}

// readDirEntries returns the packed entries of a directory inode in on-disk
// order.
func (f *FileSystem) readDirEntries(super layout.Super, inode layout.Inode) ([]layout.DirEnt, error) {
	count := int(inode.Size) / layout.DirEntSize
	entries := make([]layout.DirEnt, 0, count)

	for blockNum := 0; blockNum < layout.SizeToBlocks(int(inode.Size)); blockNum++ {
		block, err := f.disk.ReadBlock(int(super.DataRegionAddr) + int(inode.Direct[blockNum]))
		if err != nil {
			return nil, err
		}

		inBlock := count - len(entries)
		if inBlock > layout.DirentsPerBlock {
			inBlock = layout.DirentsPerBlock
		}
		entries = append(entries, layout.DecodeDirEnts(block, inBlock)...)
	}
	return entries, nil
}

// writeDirEntries writes a directory's full content back through its direct
// pointers, zero-padding the tail of the last block. len(entries) must
// match inode.Size.
func (f *FileSystem) writeDirEntries(super layout.Super, inode layout.Inode, entries []layout.DirEnt) error {
	raw := layout.EncodeDirEnts(entries)

	for blockNum := 0; blockNum < layout.SizeToBlocks(len(raw)); blockNum++ {
		block := make([]byte, layout.BlockSize)
		start := blockNum * layout.BlockSize
		end := start + layout.BlockSize
		if end > len(raw) {
			end = len(raw)
		}
		copy(block, raw[start:end])

		err := f.disk.WriteBlock(int(super.DataRegionAddr)+int(inode.Direct[blockNum]), block)
		if err != nil {
			return err
		}
	}
	return nil
}

// runInTransaction runs op inside a disk transaction. If the caller has
// already opened one, op joins it and the caller stays responsible for
// commit and rollback; otherwise the transaction is owned here and any
// error from op rolls everything back.
func (f *FileSystem) runInTransaction(op func() error) error {
	started := false
	if !f.disk.InTransaction() {
		if err := f.disk.BeginTransaction(); err != nil {
			return err
		}
		started = true
	}

	if err := op(); err != nil {
		if started {
			f.disk.Rollback()
		}
		return err
	}

	if started {
		return f.disk.Commit()
	}
	return nil
}
