// SPDX-License-Identifier: MPL-2.0

package igorfile

import (
	"errors"
	"fmt"
)

var (
	// ErrBadConfig is the sentinel error wrapped by BadConfigError.
	ErrBadConfig = errors.New("bad configuration")
	// ErrMissingThundercloud is returned when a niche's thundercloud cannot
	// be resolved to a readable tree with a thundercloud.toml descriptor.
	ErrMissingThundercloud = errors.New("missing thundercloud")
)

type (
	// BadConfigError is returned when a configuration file fails schema
	// validation or structural checks. It wraps ErrBadConfig for
	// errors.Is() compatibility; the underlying cause is available via
	// Cause.
	BadConfigError struct {
		Path  string
		Cause error
	}

	// MissingThundercloudError is returned when a niche's thundercloud
	// directory does not exist or lacks its descriptor. It wraps
	// ErrMissingThundercloud for errors.Is() compatibility.
	MissingThundercloudError struct {
		Niche     Identifier
		Directory string
	}
)

// Error implements the error interface for BadConfigError.
func (e *BadConfigError) Error() string {
	return fmt.Sprintf("bad configuration in %s: %v", e.Path, e.Cause)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *BadConfigError) Unwrap() error {
	return ErrBadConfig
}

// Error implements the error interface for MissingThundercloudError.
func (e *MissingThundercloudError) Error() string {
	return fmt.Sprintf("niche %q: thundercloud not found at %q", e.Niche, e.Directory)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *MissingThundercloudError) Unwrap() error {
	return ErrMissingThundercloud
}
