package racelog

import "errors"

var (
	// ErrDesync means the out-of-order buffer overflowed: the line
	// interleaving no longer matches any sequence the assembler can repair.
	ErrDesync = errors.New("episode assembler desynchronized")

	// ErrMalformed marks a structured log field that failed its cross-check
	// (action space index order, evaluation progress count).
	ErrMalformed = errors.New("malformed structured log field")
)
