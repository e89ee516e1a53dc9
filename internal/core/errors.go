package core

import (
	"errors"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

var (
	// ErrNoDataset aborts a pipeline run before profiling.
	ErrNoDataset = errors.New("no dataset provided")

	// ErrColumnNotFound is the dataset sentinel re-exported so callers need
	// not import dataset to test for it.
	ErrColumnNotFound = dataset.ErrColumnNotFound

	ErrIncompatibleType = errors.New("incompatible column type")
	ErrFieldNotBound    = errors.New("canonical field not bound")
	ErrInvalidBounds    = errors.New("invalid bounds")
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrOperationPanic   = errors.New("operation panicked")

	ErrRunNotFound = errors.New("run not found")
)
