package fs

import (
	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/alloc"
	"github.com/gunrock-web/ds3fs/layout"
)

// Write replaces the entire content of the regular file `inum` with `data`.
// Data blocks are allocated to cover the new size and freed on shrink; the
// whole operation is one disk transaction.
//
// Returns ErrInvalidType for directories, ErrFileTooLarge when the content
// exceeds the direct pointers, and ErrNoSpace when not enough data blocks
// are free to back the new size.
func (f *FileSystem) Write(inum int, data []byte) (int, error) {
	size := len(data)
	if size > layout.MaxFileSize {
		return 0, ds3fs.ErrFileTooLarge
	}

	super, err := f.ReadSuperBlock()
	if err != nil {
		return 0, err
	}
	inodeBitmap, err := f.ReadInodeBitmap(super)
	if err != nil {
		return 0, err
	}
	if err := checkInode(super, inodeBitmap, inum); err != nil {
		return 0, err
	}

	inodes, err := f.ReadInodeRegion(super)
	if err != nil {
		return 0, err
	}
	inode := inodes[inum]
	if inode.Type == layout.Directory {
		return 0, ds3fs.ErrInvalidType.WithMessage("cannot write to a directory")
	}

	err = f.runInTransaction(func() error {
		dataBitmap, err := f.ReadDataBitmap(super)
		if err != nil {
			return err
		}

		// A file always keeps at least its first block, handed out by
		// Create; grow and shrink against that floor.
		have := contentBlocks(inode)
		want := layout.SizeToBlocks(size)
		if want == 0 {
			want = 1
		}

		for blockNum := have; blockNum < want; blockNum++ {
			id, err := alloc.FirstFree(dataBitmap, int(super.NumData))
			if err != nil {
				return err
			}
			alloc.Set(dataBitmap, id)
			inode.Direct[blockNum] = uint32(id)
		}
		for blockNum := want; blockNum < have; blockNum++ {
			alloc.Clear(dataBitmap, int(inode.Direct[blockNum]))
			inode.Direct[blockNum] = 0
		}

		for blockNum := 0; blockNum < layout.SizeToBlocks(size); blockNum++ {
			block := make([]byte, layout.BlockSize)
			start := blockNum * layout.BlockSize
			end := start + layout.BlockSize
			if end > size {
				end = size
			}
			copy(block, data[start:end])

			err := f.disk.WriteBlock(int(super.DataRegionAddr)+int(inode.Direct[blockNum]), block)
			if err != nil {
				return err
			}
		}

		inode.Size = int32(size)
		inodes[inum] = inode

		if err := f.WriteDataBitmap(super, dataBitmap); err != nil {
			return err
		}
		return f.WriteInodeRegion(super, inodes)
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}

// Create ensures a child named `name` of the given type exists under the
// directory `parent` and returns its inode number. If the name already
// exists with the same type the existing inode is returned and nothing is
// mutated; with a different type the call fails with ErrInvalidType.
func (f *FileSystem) Create(parent int, inodeType int32, name string) (int, error) {
	if len(name) == 0 || len(name) > layout.MaxName-1 {
		return 0, ds3fs.ErrInvalidName
	}

	super, err := f.ReadSuperBlock()
	if err != nil {
		return 0, err
	}
	inodeBitmap, err := f.ReadInodeBitmap(super)
	if err != nil {
		return 0, err
	}
	if err := checkInode(super, inodeBitmap, parent); err != nil {
		return 0, err
	}

	inodes, err := f.ReadInodeRegion(super)
	if err != nil {
		return 0, err
	}
	parentInode := inodes[parent]
	if parentInode.Type != layout.Directory {
		return 0, ds3fs.ErrInvalidInode.WithMessage("parent is not a directory")
	}

	entries, err := f.readDirEntries(super, parentInode)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if entry.NameMatches(name) {
			if inodes[entry.Inum].Type == inodeType {
				return int(entry.Inum), nil
			}
			return 0, ds3fs.ErrInvalidType.WithMessage("entry exists with a different type")
		}
	}

	var child int
	err = f.runInTransaction(func() error {
		// The child's inode first, then its first data block. The two
		// bitmaps are independent, so the order only fixes the IDs.
		childInum, err := alloc.FirstFree(inodeBitmap, int(super.NumInodes))
		if err != nil {
			return err
		}
		alloc.Set(inodeBitmap, childInum)

		dataBitmap, err := f.ReadDataBitmap(super)
		if err != nil {
			return err
		}
		childBlock, err := alloc.FirstFree(dataBitmap, int(super.NumData))
		if err != nil {
			return err
		}
		alloc.Set(dataBitmap, childBlock)

		childInode := layout.Inode{Type: inodeType}
		if inodeType == layout.Directory {
			childInode.Size = 2 * layout.DirEntSize
		}
		childInode.Direct[0] = uint32(childBlock)
		inodes[childInum] = childInode

		// Append the entry to the parent, growing it by one block when the
		// current last block is full.
		entryBlock := int(parentInode.Size) / layout.BlockSize
		entryOffset := int(parentInode.Size) % layout.BlockSize
		if entryOffset == 0 {
			if entryBlock >= layout.DirectPtrs {
				return ds3fs.ErrNoSpace.WithMessage("parent directory is full")
			}
			parentBlock, err := alloc.FirstFree(dataBitmap, int(super.NumData))
			if err != nil {
				return err
			}
			alloc.Set(dataBitmap, parentBlock)
			parentInode.Direct[entryBlock] = uint32(parentBlock)
		}

		block := make([]byte, layout.BlockSize)
		if entryOffset != 0 {
			existing, err := f.disk.ReadBlock(int(super.DataRegionAddr) + int(parentInode.Direct[entryBlock]))
			if err != nil {
				return err
			}
			copy(block, existing)
		}
		entry := layout.DirEnt{Inum: int32(childInum), Name: layout.NameToBytes(name)}
		copy(block[entryOffset:], layout.EncodeDirEnts([]layout.DirEnt{entry}))

		err = f.disk.WriteBlock(int(super.DataRegionAddr)+int(parentInode.Direct[entryBlock]), block)
		if err != nil {
			return err
		}

		parentInode.Size += layout.DirEntSize
		inodes[parent] = parentInode

		if inodeType == layout.Directory {
			dirBlock := make([]byte, layout.BlockSize)
			copy(dirBlock, layout.EncodeDirEnts([]layout.DirEnt{
				{Inum: int32(childInum), Name: layout.NameToBytes(".")},
				{Inum: int32(parent), Name: layout.NameToBytes("..")},
			}))
			err := f.disk.WriteBlock(int(super.DataRegionAddr)+childBlock, dirBlock)
			if err != nil {
				return err
			}
		}

		if err := f.WriteInodeBitmap(super, inodeBitmap); err != nil {
			return err
		}
		if err := f.WriteDataBitmap(super, dataBitmap); err != nil {
			return err
		}
		if err := f.WriteInodeRegion(super, inodes); err != nil {
			return err
		}

		child = childInum
		return nil
	})
	if err != nil {
		return 0, err
	}
	return child, nil
}

// Unlink removes the entry `name` from the directory `parent`, freeing the
// target's inode and data blocks. Removing an absent name succeeds, so the
// operation is idempotent. `.` and `..` are refused, and a non-empty
// directory cannot be unlinked.
func (f *FileSystem) Unlink(parent int, name string) error {
	if name == "." || name == ".." {
		return ds3fs.ErrUnlinkNotAllowed
	}
	if len(name) == 0 || len(name) > layout.MaxName-1 {
		return ds3fs.ErrInvalidName
	}

	super, err := f.ReadSuperBlock()
	if err != nil {
		return err
	}
	inodeBitmap, err := f.ReadInodeBitmap(super)
	if err != nil {
		return err
	}
	if err := checkInode(super, inodeBitmap, parent); err != nil {
		return err
	}

	inodes, err := f.ReadInodeRegion(super)
	if err != nil {
		return err
	}
	parentInode := inodes[parent]
	if parentInode.Type != layout.Directory {
		return ds3fs.ErrInvalidInode.WithMessage("parent is not a directory")
	}

	entries, err := f.readDirEntries(super, parentInode)
	if err != nil {
		return err
	}
	target := -1
	for idx, entry := range entries {
		if entry.NameMatches(name) {
			target = idx
			break
		}
	}
	if target < 0 {
		return nil
	}

	targetInum := int(entries[target].Inum)
	targetInode := inodes[targetInum]
	if targetInode.Type == layout.Directory && targetInode.Size > 2*layout.DirEntSize {
		return ds3fs.ErrDirectoryNotEmpty
	}

	return f.runInTransaction(func() error {
		dataBitmap, err := f.ReadDataBitmap(super)
		if err != nil {
			return err
		}

		for blockNum := 0; blockNum < contentBlocks(targetInode); blockNum++ {
			alloc.Clear(dataBitmap, int(targetInode.Direct[blockNum]))
		}
		alloc.Clear(inodeBitmap, targetInum)
		inodes[targetInum] = layout.Inode{}

		// Overwrite the removed entry with the last one and shrink. If that
		// empties the parent's last block, return the block too.
		entries[target] = entries[len(entries)-1]
		entries = entries[:len(entries)-1]
		parentInode.Size -= layout.DirEntSize

		if int(parentInode.Size)%layout.BlockSize == 0 {
			emptied := int(parentInode.Size) / layout.BlockSize
			alloc.Clear(dataBitmap, int(parentInode.Direct[emptied]))
			parentInode.Direct[emptied] = 0
		}
		inodes[parent] = parentInode

		if err := f.writeDirEntries(super, parentInode, entries); err != nil {
			return err
		}
		if err := f.WriteInodeBitmap(super, inodeBitmap); err != nil {
			return err
		}
		if err := f.WriteDataBitmap(super, dataBitmap); err != nil {
			return err
		}
		return f.WriteInodeRegion(super, inodes)
	})
}
