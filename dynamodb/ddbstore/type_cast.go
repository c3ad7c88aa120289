package ddbstore

import "fmt"

// mustCast asserts v to T. Values come from gob data this package wrote, so
// a mismatch means the database is corrupt.
func mustCast[T any](v any) T {
	out, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("type assertion failed, got %T want %T", v, out))
	}
	return out
}
