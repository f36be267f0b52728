package ds3fs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gunrock-web/ds3fs"
)

func TestErrorWithMessage(t *testing.T) {
	newErr := ds3fs.ErrInvalidInode.WithMessage("inode 99 not in [0, 64)")
	assert.Equal(
		t, "Invalid inode: inode 99 not in [0, 64)", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, ds3fs.ErrInvalidInode)
}

func TestErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := ds3fs.ErrIOFailed.Wrap(originalErr)
	expectedMessage := "Input/output error: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, ds3fs.ErrIOFailed, "filesystem error not set as parent")
}

func TestErrorKindsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ds3fs.ErrNotFound, ds3fs.ErrInvalidInode)
	assert.NotErrorIs(t, ds3fs.ErrNoSpace, ds3fs.ErrFileTooLarge)
}
