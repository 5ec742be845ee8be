// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation utilities.
//
// The igorfile and config packages both validate user-authored files
// against embedded CUE schemas; this package holds the pieces they
// share: a size guard applied before any parsing and an error formatter
// that turns CUE error paths into JSON-path notation users can follow
// back to the offending field.
package cueutil
