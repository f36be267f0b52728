package fs

import (
	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/layout"
)

// Lookup returns the inode number of `name` inside the directory `parent`.
//
// Returns ErrInvalidInode if parent is out of range, unallocated, or not a
// directory, and ErrNotFound if the name is empty, longer than
// layout.MaxName-1 bytes, or absent from the directory.
func (f *FileSystem) Lookup(parent int, name string) (int, error) {
	if len(name) == 0 || len(name) > layout.MaxName-1 {
		return 0, ds3fs.ErrNotFound.WithMessage("invalid entry name")
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
	if inodes[parent].Type != layout.Directory {
		return 0, ds3fs.ErrInvalidInode.WithMessage("parent is not a directory")
	}

	entries, err := f.readDirEntries(super, inodes[parent])
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if entry.NameMatches(name) {
			return int(entry.Inum), nil
		}
	}
	return 0, ds3fs.ErrNotFound
}

// Stat returns the stored inode for `inum`.
func (f *FileSystem) Stat(inum int) (layout.Inode, error) {
	super, err := f.ReadSuperBlock()
	if err != nil {
		return layout.Inode{}, err
	}
	inodeBitmap, err := f.ReadInodeBitmap(super)
	if err != nil {
		return layout.Inode{}, err
	}
	if err := checkInode(super, inodeBitmap, inum); err != nil {
		return layout.Inode{}, err
	}

	inodes, err := f.ReadInodeRegion(super)
	if err != nil {
		return layout.Inode{}, err
	}
	return inodes[inum], nil
}

// Read returns up to `size` bytes from the start of the file, reading
// min(size, inode.Size) bytes linearly from the inode's direct blocks.
//
// Returns ErrInvalidSize if size is negative, or if the inode is a
// directory and size is not a multiple of the directory entry size.
func (f *FileSystem) Read(inum int, size int) ([]byte, error) {
	if size < 0 {
		return nil, ds3fs.ErrInvalidSize.WithMessage("negative read size")
	}

	super, err := f.ReadSuperBlock()
	if err != nil {
		return nil, err
	}
	inodeBitmap, err := f.ReadInodeBitmap(super)
	if err != nil {
		return nil, err
	}
	if err := checkInode(super, inodeBitmap, inum); err != nil {
		return nil, err
	}

	inodes, err := f.ReadInodeRegion(super)
	if err != nil {
		return nil, err
	}
	inode := inodes[inum]
	if inode.Type == layout.Directory && size%layout.DirEntSize != 0 {
		return nil, ds3fs.ErrInvalidSize.WithMessage(
			"directory reads must be a multiple of the entry size")
	}

	if size > int(inode.Size) {
		size = int(inode.Size)
	}

	data := make([]byte, 0, size)
	for blockNum := 0; blockNum < layout.SizeToBlocks(size); blockNum++ {
		block, err := f.disk.ReadBlock(int(super.DataRegionAddr) + int(inode.Direct[blockNum]))
		if err != nil {
			return nil, err
		}

		take := size - len(data)
		if take > layout.BlockSize {
			take = layout.BlockSize
		}
		data = append(data, block[:take]...)
	}
	return data, nil
}

// ReadDir returns the entries of the directory `inum` in on-disk order. That
// is insertion order until an Unlink moves the last entry into the freed slot.
func (f *FileSystem) ReadDir(inum int) ([]layout.DirEnt, error) {
	inode, err := f.Stat(inum)
	if err != nil {
		return nil, err
	}
	if inode.Type != layout.Directory {
		return nil, ds3fs.ErrInvalidType.WithMessage("not a directory")
	}

	raw, err := f.Read(inum, int(inode.Size))
	if err != nil {
		return nil, err
	}
	return layout.DecodeDirEnts(raw, len(raw)/layout.DirEntSize), nil
}
