package disk_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/disk"
	"github.com/gunrock-web/ds3fs/layout"
)

func newTestDisk(t *testing.T, numBlocks int) (*disk.Disk, []byte) {
	t.Helper()
	backing := make([]byte, numBlocks*layout.BlockSize)
	return disk.New(bytesextra.NewReadWriteSeeker(backing), numBlocks), backing
}

func filledBlock(value byte) []byte {
	return bytes.Repeat([]byte{value}, layout.BlockSize)
}

func TestReadWriteRoundTrip(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	require.NoError(t, d.WriteBlock(2, filledBlock(0xaa)))

	block, err := d.ReadBlock(2)
	require.NoError(t, err)
	assert.Equal(t, filledBlock(0xaa), block)
}

func TestReadOutOfRange(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	_, err := d.ReadBlock(4)
	assert.ErrorIs(t, err, ds3fs.ErrBlockOutOfRange)

	_, err = d.ReadBlock(-1)
	assert.ErrorIs(t, err, ds3fs.ErrBlockOutOfRange)
}

func TestWriteRequiresFullBlock(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	err := d.WriteBlock(0, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ds3fs.ErrInvalidSize)
}

func TestRollbackRestoresPreImages(t *testing.T) {
	d, backing := newTestDisk(t, 4)
	require.NoError(t, d.WriteBlock(1, filledBlock(0x11)))

	before := make([]byte, len(backing))
	copy(before, backing)

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.WriteBlock(1, filledBlock(0x22)))
	require.NoError(t, d.WriteBlock(3, filledBlock(0x33)))
	require.NoError(t, d.WriteBlock(1, filledBlock(0x44)))
	require.NoError(t, d.Rollback())

	assert.Equal(t, before, backing, "rollback must leave the image byte-for-byte identical")
}

func TestCommitKeepsWrites(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.WriteBlock(1, filledBlock(0x55)))
	require.NoError(t, d.Commit())

	block, err := d.ReadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, filledBlock(0x55), block)
}

func TestReadYourWrites(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.WriteBlock(2, filledBlock(0x77)))

	block, err := d.ReadBlock(2)
	require.NoError(t, err)
	assert.Equal(t, filledBlock(0x77), block, "reads must see writes staged in the same transaction")

	require.NoError(t, d.Rollback())
}

func TestNestedBeginFails(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	require.NoError(t, d.BeginTransaction())
	assert.ErrorIs(t, d.BeginTransaction(), ds3fs.ErrTransactionInProgress)
	require.NoError(t, d.Rollback())
}

func TestCommitWithoutTransaction(t *testing.T) {
	d, _ := newTestDisk(t, 4)

	assert.ErrorIs(t, d.Commit(), ds3fs.ErrNoTransaction)
	assert.ErrorIs(t, d.Rollback(), ds3fs.ErrNoTransaction)
}

func TestPoisonedTransactionRollsBackOnCommit(t *testing.T) {
	d, backing := newTestDisk(t, 4)

	before := make([]byte, len(backing))
	copy(before, backing)

	require.NoError(t, d.BeginTransaction())
	require.NoError(t, d.WriteBlock(0, filledBlock(0x99)))
	assert.ErrorIs(t, d.WriteBlock(4, filledBlock(0x99)), ds3fs.ErrBlockOutOfRange)

	assert.ErrorIs(t, d.Commit(), ds3fs.ErrTransactionPoisoned)
	assert.Equal(t, before, backing, "a poisoned commit must roll everything back")
	assert.False(t, d.InTransaction())
}

func TestWriteOutsideTransactionIsImmediate(t *testing.T) {
	d, backing := newTestDisk(t, 4)

	require.NoError(t, d.WriteBlock(0, filledBlock(0x42)))
	assert.Equal(t, filledBlock(0x42), backing[:layout.BlockSize])
}
