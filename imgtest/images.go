// Package imgtest builds in-memory disk images for tests.
package imgtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/gunrock-web/ds3fs/disk"
	"github.com/gunrock-web/ds3fs/fs"
	"github.com/gunrock-web/ds3fs/layout"
)

// NewImage returns a freshly formatted in-memory disk with the given entity
// counts, sized exactly to the layout. Writes never touch the host
// filesystem.
func NewImage(t *testing.T, numInodes, numData int) *disk.Disk {
	t.Helper()

	numBlocks := fs.RequiredBlocks(numInodes, numData)
	stream := bytesextra.NewReadWriteSeeker(make([]byte, numBlocks*layout.BlockSize))
	d := disk.New(stream, numBlocks)

	require.NoError(t, fs.Format(d, numInodes, numData), "formatting test image")
	return d
}

// NewDefaultImage returns a formatted in-memory disk big enough for most
// tests: 64 inodes and 128 data blocks.
func NewDefaultImage(t *testing.T) *disk.Disk {
	t.Helper()
	return NewImage(t, 64, 128)
}
