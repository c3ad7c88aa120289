package tableops

import (
	"errors"
	"fmt"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	// ErrItemExists is returned by a put without overwrite when the key is taken.
	ErrItemExists  = errors.New("item already exists")
	ErrWaitTimeout = errors.New("timed out waiting for table to become active")
)

// TableNotFoundError names a table that could not be described.
type TableNotFoundError struct {
	Table  string
	Region string
	Err    error
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s could not be found in %s", e.Table, e.Region)
}

func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrTableNotFound
}

func (e *TableNotFoundError) Unwrap() error {
	return e.Err
}
