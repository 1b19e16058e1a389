package types

import "github.com/cockroachdb/errors"

// Domain errors for type validation
var (
	ErrEmptyInitPath    = errors.New("init path cannot be empty")
	ErrEmptyStubPath    = errors.New("stub path cannot be empty")
	ErrInvalidBucket    = errors.New("bucket must be create, overwrite or unchanged")
	ErrNegativeSymbols  = errors.New("symbol count must be >= 0")
	ErrUnexpectedHeader = errors.New("only overwritten stubs carry an existing header")
)
