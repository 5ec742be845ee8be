// SPDX-License-Identifier: MPL-2.0

package igorfile

import (
	"errors"
	"fmt"
)

const (
	// OnIncomingUpdate fast-forwards the local working copy to the remote.
	OnIncomingUpdate OnIncoming = "update"
	// OnIncomingIgnore leaves the local working copy untouched.
	OnIncomingIgnore OnIncoming = "ignore"
	// OnIncomingWarn leaves the working copy untouched but logs a warning.
	OnIncomingWarn OnIncoming = "warn"
	// OnIncomingFail fails the niche when the remote has new commits.
	OnIncomingFail OnIncoming = "fail"
)

var (
	// ErrInvalidOnIncoming is the sentinel error wrapped by InvalidOnIncomingError.
	ErrInvalidOnIncoming = errors.New("invalid on-incoming mode")
)

type (
	// NicheSettings is the per-niche settings file (igor-thettingth.toml by
	// default) found in each niche directory.
	NicheSettings struct {
		Thundercloud ThundercloudBinding `toml:"thundercloud"`
		Options      OptionsConfig       `toml:"options"`
		Settings     RunSettings         `toml:"settings"`
		InvarDefaults InvarConfig        `toml:"invar-defaults"`
	}

	// ThundercloudBinding locates the thundercloud a niche consumes: either
	// a local directory or a git remote with a managed working copy.
	ThundercloudBinding struct {
		// Directory is the thundercloud root. The built-in props
		// {{PROJECT}} and {{WORKSPACE}} are interpolated before resolution.
		Directory string           `toml:"directory"`
		Git       *GitRemoteConfig `toml:"git"`
	}

	// GitRemoteConfig describes a git-backed thundercloud. Fetching is the
	// job of an external source provider; the engine only resolves the
	// local working copy.
	GitRemoteConfig struct {
		Remote     string     `toml:"remote"`
		Revision   string     `toml:"revision"`
		OnIncoming OnIncoming `toml:"on-incoming"`
	}

	// OptionsConfig is the feature selection of a niche.
	OptionsConfig struct {
		Selected   []Identifier `toml:"selected"`
		Deselected []Identifier `toml:"deselected"`
	}

	// RunSettings holds per-niche run behavior.
	RunSettings struct {
		// Watch opts the niche into watch mode.
		Watch bool `toml:"watch"`
		// Build is an optional command line run after the niche's actions
		// complete successfully.
		Build string `toml:"build"`
	}

	// OnIncoming selects what to do when a git-backed thundercloud's remote
	// has commits the working copy lacks.
	OnIncoming string

	// InvalidOnIncomingError is returned when an OnIncoming value is not
	// recognized. It wraps ErrInvalidOnIncoming for errors.Is() compatibility.
	InvalidOnIncomingError struct {
		Value OnIncoming
	}
)

// String returns the string representation of the OnIncoming mode.
func (m OnIncoming) String() string { return string(m) }

// IsValid reports whether the OnIncoming mode is one of the defined modes.
// The zero value ("") is valid and means OnIncomingUpdate.
func (m OnIncoming) IsValid() (bool, []error) {
	switch m {
	case "", OnIncomingUpdate, OnIncomingIgnore, OnIncomingWarn, OnIncomingFail:
		return true, nil
	default:
		return false, []error{&InvalidOnIncomingError{Value: m}}
	}
}

// Effective returns the configured mode, or OnIncomingUpdate when unset.
func (m OnIncoming) Effective() OnIncoming {
	if m == "" {
		return OnIncomingUpdate
	}
	return m
}

// Error implements the error interface for InvalidOnIncomingError.
func (e *InvalidOnIncomingError) Error() string {
	return fmt.Sprintf("invalid on-incoming mode %q (valid: update, ignore, warn, fail)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidOnIncomingError) Unwrap() error {
	return ErrInvalidOnIncoming
}

// FeatureSet builds the evaluated feature set from the options section.
func (o OptionsConfig) FeatureSet() FeatureSet {
	return NewFeatureSet(o.Selected, o.Deselected)
}

// IsValid reports whether the settings file is structurally valid: a
// thundercloud binding is present, feature names are identifiers, and the
// invar defaults hold valid values.
func (s *NicheSettings) IsValid() (bool, []error) {
	var errs []error
	if s.Thundercloud.Directory == "" && s.Thundercloud.Git == nil {
		errs = append(errs, errors.New("thundercloud requires either directory or git"))
	}
	if s.Thundercloud.Git != nil {
		if s.Thundercloud.Git.Remote == "" {
			errs = append(errs, errors.New("thundercloud.git requires remote"))
		}
		if ok, oerrs := s.Thundercloud.Git.OnIncoming.IsValid(); !ok {
			errs = append(errs, oerrs...)
		}
	}
	for _, f := range s.Options.Selected {
		if ok, ferrs := f.IsFeature(); !ok {
			errs = append(errs, ferrs...)
		}
	}
	for _, f := range s.Options.Deselected {
		if ok, ferrs := f.IsFeature(); !ok {
			errs = append(errs, ferrs...)
		}
	}
	if ok, ierrs := s.InvarDefaults.IsValid(); !ok {
		errs = append(errs, ierrs...)
	}
	return len(errs) == 0, errs
}
