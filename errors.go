package ds3fs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// FSError is the error type returned by every component in this module. Use
// errors.Is with one of the exported sentinel values below to classify a
// failure; use WithMessage and Wrap to add context without losing the kind.
type FSError interface {
	error
	WithMessage(message string) FSError
	Wrap(err error) FSError
}

type baseFSError string

const rootError = baseFSError("")

var ErrInvalidInode = rootError.WithMessage("Invalid inode")
var ErrInvalidName = rootError.WithMessage("Invalid name")
var ErrInvalidType = rootError.WithMessage("Invalid type")
var ErrInvalidSize = rootError.WithMessage("Invalid size")
var ErrNotFound = rootError.WithMessage("No such file or directory")
var ErrNoSpace = rootError.WithMessage("No space left on device")
var ErrFileTooLarge = rootError.WithMessage("File too large")
var ErrDirectoryNotEmpty = rootError.WithMessage("Directory not empty")
var ErrUnlinkNotAllowed = rootError.WithMessage("Unlinking the entry is not allowed")

var ErrTransactionInProgress = rootError.WithMessage("Transaction already in progress")
var ErrNoTransaction = rootError.WithMessage("No transaction in progress")
var ErrTransactionPoisoned = rootError.WithMessage("Transaction poisoned")
var ErrBlockOutOfRange = rootError.WithMessage("Block address out of range")
var ErrIOFailed = rootError.WithMessage("Input/output error")

func (e baseFSError) Error() string {
	return string(e)
}

func (e baseFSError) WithMessage(message string) FSError {
	return customFSError{
		message:       message,
		originalError: e,
	}
}

func (e baseFSError) Wrap(err error) FSError {
	return customFSError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customFSError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a
// string describing the error.
func (e customFSError) Error() string {
	return e.message
}

func (e customFSError) WithMessage(message string) FSError {
	return customFSError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customFSError) Wrap(err error) FSError {
	return customFSError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customFSError) Unwrap() error {
	return e.originalError
}
