package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/fs"
	"github.com/gunrock-web/ds3fs/imgtest"
	"github.com/gunrock-web/ds3fs/layout"
)

func TestSegments(t *testing.T) {
	assert.Nil(t, fs.Segments("/"))
	assert.Nil(t, fs.Segments(""))
	assert.Equal(t, []string{"a", "b"}, fs.Segments("/a/b"))
	assert.Equal(t, []string{"a", "b"}, fs.Segments("/a//b/"))
	assert.Equal(t, []string{"a"}, fs.Segments("a"))
}

func TestResolveRoot(t *testing.T) {
	filesystem := fs.New(imgtest.NewDefaultImage(t))

	inum, parent, err := filesystem.Resolve("/", layout.RootInode)
	require.NoError(t, err)
	assert.Equal(t, layout.RootInode, inum)
	assert.Equal(t, layout.RootInode, parent)
}

func TestResolveNestedPath(t *testing.T) {
	filesystem := fs.New(imgtest.NewDefaultImage(t))

	x, err := filesystem.Create(layout.RootInode, layout.Directory, "x")
	require.NoError(t, err)
	y, err := filesystem.Create(x, layout.Directory, "y")
	require.NoError(t, err)
	leaf, err := filesystem.Create(y, layout.RegularFile, "z.txt")
	require.NoError(t, err)

	inum, parent, err := filesystem.Resolve("/x/y/z.txt", layout.RootInode)
	require.NoError(t, err)
	assert.Equal(t, leaf, inum)
	assert.Equal(t, y, parent)

	// Empty segments between slashes collapse.
	inum, parent, err = filesystem.Resolve("/x//y/", layout.RootInode)
	require.NoError(t, err)
	assert.Equal(t, y, inum)
	assert.Equal(t, x, parent)
}

func TestResolveMissingSegment(t *testing.T) {
	filesystem := fs.New(imgtest.NewDefaultImage(t))

	_, _, err := filesystem.Resolve("/nope/deeper", layout.RootInode)
	assert.ErrorIs(t, err, ds3fs.ErrNotFound)
}

func TestResolveThroughFile(t *testing.T) {
	filesystem := fs.New(imgtest.NewDefaultImage(t))

	_, err := filesystem.Create(layout.RootInode, layout.RegularFile, "plain")
	require.NoError(t, err)

	_, _, err = filesystem.Resolve("/plain/child", layout.RootInode)
	assert.ErrorIs(t, err, ds3fs.ErrInvalidInode, "files cannot be walked through")
}
