// Package disk provides a fixed-size block device over a backing stream,
// with transactional batching of block writes. A transaction is the unit of
// atomicity visible to filesystem clients: either every block write staged
// since BeginTransaction lands on the backing stream, or none do.
package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/gunrock-web/ds3fs"
	"github.com/gunrock-web/ds3fs/layout"
)

// Disk owns a backing stream of exactly numBlocks * layout.BlockSize bytes.
// It is not safe for concurrent use; the host serializes access.
type Disk struct {
	stream    io.ReadWriteSeeker
	numBlocks int

	inTransaction bool
	poisoned      bool

	// First pre-image of each block written during the open transaction,
	// in staging order so Rollback can restore them in reverse.
	preImages map[int][]byte
	staged    []int
}

// New wraps an existing stream as a block device. The stream must be
// exactly numBlocks blocks long; this is not verified here because streams
// such as in-memory buffers report no size.
func New(stream io.ReadWriteSeeker, numBlocks int) *Disk {
	return &Disk{
		stream:    stream,
		numBlocks: numBlocks,
	}
}

// Open opens a disk image file for read-write access. The file size must be
// an exact multiple of the block size.
func Open(path string) (*Disk, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, ds3fs.ErrIOFailed.Wrap(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ds3fs.ErrIOFailed.Wrap(err)
	}
	if info.Size()%layout.BlockSize != 0 {
		file.Close()
		return nil, ds3fs.ErrIOFailed.WithMessage(
			fmt.Sprintf(
				"image size %d is not a multiple of the block size %d",
				info.Size(),
				layout.BlockSize,
			),
		)
	}

	return New(file, int(info.Size()/layout.BlockSize)), nil
}

// NumBlocks returns the size of the device, in blocks.
func (d *Disk) NumBlocks() int {
	return d.numBlocks
}

// InTransaction reports whether a transaction is currently open. Callers
// that may run nested inside a broader transaction check this before
// beginning their own.
func (d *Disk) InTransaction() bool {
	return d.inTransaction
}

func (d *Disk) checkAddr(addr int) error {
	if addr < 0 || addr >= d.numBlocks {
		return ds3fs.ErrBlockOutOfRange.WithMessage(
			fmt.Sprintf("block %d not in [0, %d)", addr, d.numBlocks))
	}
	return nil
}

func (d *Disk) readAt(addr int, buffer []byte) error {
	if _, err := d.stream.Seek(int64(addr)*layout.BlockSize, io.SeekStart); err != nil {
		return ds3fs.ErrIOFailed.Wrap(err)
	}
	if _, err := io.ReadFull(d.stream, buffer); err != nil {
		return ds3fs.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (d *Disk) writeAt(addr int, data []byte) error {
	if _, err := d.stream.Seek(int64(addr)*layout.BlockSize, io.SeekStart); err != nil {
		return ds3fs.ErrIOFailed.Wrap(err)
	}
	if _, err := d.stream.Write(data); err != nil {
		return ds3fs.ErrIOFailed.Wrap(err)
	}
	return nil
}

// ReadBlock returns the contents of one block. Reads during an open
// transaction see writes staged by the same transaction.
func (d *Disk) ReadBlock(addr int) ([]byte, error) {
	if err := d.checkAddr(addr); err != nil {
		return nil, err
	}

	buffer := make([]byte, layout.BlockSize)
	if err := d.readAt(addr, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteBlock replaces the contents of one block. During a transaction the
// block's pre-image is remembered the first time it is written so that
// Rollback can restore it; a write to an out-of-range address fails the
// call and poisons the transaction.
func (d *Disk) WriteBlock(addr int, data []byte) error {
	if len(data) != layout.BlockSize {
		if d.inTransaction {
			d.poisoned = true
		}
		return ds3fs.ErrInvalidSize.WithMessage(
			fmt.Sprintf("block writes must be %d bytes, got %d", layout.BlockSize, len(data)))
	}
	if err := d.checkAddr(addr); err != nil {
		if d.inTransaction {
			d.poisoned = true
		}
		return err
	}

	if d.inTransaction {
		if _, have := d.preImages[addr]; !have {
			preImage := make([]byte, layout.BlockSize)
			if err := d.readAt(addr, preImage); err != nil {
				d.poisoned = true
				return err
			}
			d.preImages[addr] = preImage
			d.staged = append(d.staged, addr)
		}
	}

	if err := d.writeAt(addr, data); err != nil {
		if d.inTransaction {
			d.poisoned = true
		}
		return err
	}
	return nil
}

// BeginTransaction starts batching block writes. Nested begins are an
// error.
func (d *Disk) BeginTransaction() error {
	if d.inTransaction {
		return ds3fs.ErrTransactionInProgress
	}
	d.inTransaction = true
	d.poisoned = false
	d.preImages = make(map[int][]byte)
	d.staged = nil
	return nil
}

// Commit makes the staged writes durable and closes the transaction. A
// poisoned transaction cannot commit: the commit fails and automatically
// becomes a rollback.
func (d *Disk) Commit() error {
	if !d.inTransaction {
		return ds3fs.ErrNoTransaction
	}
	if d.poisoned {
		if err := d.Rollback(); err != nil {
			return err
		}
		return ds3fs.ErrTransactionPoisoned
	}

	d.inTransaction = false
	d.preImages = nil
	d.staged = nil

	if syncer, ok := d.stream.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return ds3fs.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}

// Rollback restores every block written during the transaction to its
// pre-image and discards the log, leaving the backing stream byte-for-byte
// identical to its state before BeginTransaction.
func (d *Disk) Rollback() error {
	if !d.inTransaction {
		return ds3fs.ErrNoTransaction
	}

	var restoreErr error
	for i := len(d.staged) - 1; i >= 0; i-- {
		addr := d.staged[i]
		if err := d.writeAt(addr, d.preImages[addr]); err != nil && restoreErr == nil {
			restoreErr = err
		}
	}

	d.inTransaction = false
	d.poisoned = false
	d.preImages = nil
	d.staged = nil
	return restoreErr
}

// Close releases the backing stream if it is closable. An open transaction
// is rolled back first.
func (d *Disk) Close() error {
	if d.inTransaction {
		d.Rollback()
	}
	if closer, ok := d.stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
