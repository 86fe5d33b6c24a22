// SPDX-License-Identifier: MIT

// Package identify recognises documents from their extracted text using
// configured rules and derives the components of a canonical filename.
package identify
