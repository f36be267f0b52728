// Package alloc implements first-fit allocation over the raw inode and
// data bitmaps. The allocator is stateless: callers read the bitmap blocks
// at the start of an operation, allocate and free IDs against the in-memory
// copy, and write the blocks back on commit.
//
// Bit b of byte B covers ID 8*B + b; a set bit means allocated.
package alloc

import (
	"github.com/boljen/go-bitmap"

	"github.com/gunrock-web/ds3fs"
)

// FirstFree returns the lowest ID in [0, total) whose bit is clear. Bytes
// are scanned in ascending address order and bits LSB to MSB, so the result
// is deterministic for a given bitmap. Returns ErrNoSpace when every ID is
// taken.
func FirstFree(bm []byte, total int) (int, error) {
	for id := 0; id < total; id++ {
		if !bitmap.Get(bm, id) {
			return id, nil
		}
	}
	return 0, ds3fs.ErrNoSpace
}

// Set marks `id` as allocated.
func Set(bm []byte, id int) {
	bitmap.Set(bm, id, true)
}

// Clear marks `id` as free.
func Clear(bm []byte, id int) {
	bitmap.Set(bm, id, false)
}

// IsSet reports whether `id` is allocated.
func IsSet(bm []byte, id int) bool {
	return bitmap.Get(bm, id)
}
