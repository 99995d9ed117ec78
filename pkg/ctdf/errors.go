package ctdf

import "errors"

// ErrNotFound is returned by lookups when no record matches the identifier
var ErrNotFound = errors.New("record not found")
