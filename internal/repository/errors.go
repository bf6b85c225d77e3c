package repository

import "errors"

// ErrNotFound is returned by stores and caches when nothing matches the lookup.
var ErrNotFound = errors.New("not found")
