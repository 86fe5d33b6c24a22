// SPDX-License-Identifier: MIT

package identify

import "errors"

var (
	// ErrNoMatch means no rule recognised the document.
	ErrNoMatch = errors.New("identify: no rule matches")
	// ErrMultipleMatches means more than one rule recognised the document.
	ErrMultipleMatches = errors.New("identify: more than one rule matches")
	// ErrIncomplete means a rule matched but a required component could not be extracted.
	ErrIncomplete = errors.New("identify: incomplete match")
	// ErrInvalidFilename means the components cannot form a filename.
	ErrInvalidFilename = errors.New("identify: invalid filename")
)
