package crush

import (
	"errors"

	"github.com/eunmann/crushtool/pkg/symtab"
	"github.com/eunmann/crushtool/pkg/wire"
)

var (
	// ErrTruncated indicates the input ended inside a field.
	ErrTruncated = wire.ErrTruncated
	// ErrInvalidText indicates a symbol name that is not valid UTF-8.
	ErrInvalidText = wire.ErrInvalidText
	// ErrEmptyName indicates a symbol with an empty name. Such names can be
	// read in the extended length form but cannot be written back.
	ErrEmptyName = symtab.ErrEmptyName
	// ErrUnknownTag indicates an unknown algorithm, hash, rule type, or opcode.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrWriteFailure indicates the output sink rejected a write.
	ErrWriteFailure = errors.New("write failure")
	// ErrMagicMismatch indicates the input does not start with Magic.
	ErrMagicMismatch = errors.New("magic number mismatch")
	// ErrInvalidCount indicates a negative or impossible element count.
	ErrInvalidCount = errors.New("invalid count")
	// ErrCountMismatch indicates a slice length that disagrees with its
	// declared maximum.
	ErrCountMismatch = errors.New("count mismatch")
	// ErrInvalidValue indicates a structure that cannot be encoded as given.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownProfile indicates a tunables profile name with no preset.
	ErrUnknownProfile = errors.New("unknown tunables profile")
)
