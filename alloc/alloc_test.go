package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/alloc"
)

func TestFirstFreeScansLSBFirst(t *testing.T) {
	// Bits 0-2 of byte 0 are taken, so the first free ID is 3.
	bm := []byte{0b00000111, 0x00}

	id, err := alloc.FirstFree(bm, 16)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
}

func TestFirstFreeSkipsFullBytes(t *testing.T) {
	bm := []byte{0xff, 0b00001111}

	id, err := alloc.FirstFree(bm, 16)
	require.NoError(t, err)
	assert.Equal(t, 12, id)
}

func TestFirstFreeHonorsTotal(t *testing.T) {
	// Byte 1 has free bits, but only the first 8 IDs exist.
	bm := []byte{0xff, 0x00}

	_, err := alloc.FirstFree(bm, 8)
	assert.ErrorIs(t, err, ds3fs.ErrNoSpace)
}

func TestSetAndClear(t *testing.T) {
	bm := make([]byte, 2)

	alloc.Set(bm, 9)
	assert.True(t, alloc.IsSet(bm, 9))
	assert.Equal(t, byte(0b00000010), bm[1])

	alloc.Clear(bm, 9)
	assert.False(t, alloc.IsSet(bm, 9))
	assert.Equal(t, byte(0), bm[1])
}

func TestAllocateInOrder(t *testing.T) {
	bm := make([]byte, 1)

	for want := 0; want < 8; want++ {
		id, err := alloc.FirstFree(bm, 8)
		require.NoError(t, err)
		assert.Equal(t, want, id)
		alloc.Set(bm, id)
	}

	_, err := alloc.FirstFree(bm, 8)
	assert.ErrorIs(t, err, ds3fs.ErrNoSpace)
}
