// SPDX-License-Identifier: MPL-2.0

package igorfile

import "errors"

const (
	// ThundercloudConfigFileName is the descriptor at each thundercloud root.
	ThundercloudConfigFileName = "thundercloud.toml"
	// CumulusDirectory is the subdirectory of a thundercloud holding the
	// templated tree.
	CumulusDirectory = "cumulus"
	// InvarDirectory is the subdirectory of a niche directory holding the
	// local override tree.
	InvarDirectory = "invar"
)

type (
	// ThundercloudConfig is the thundercloud.toml descriptor at a
	// thundercloud root: identity plus the thundercloud's own invar
	// defaults, which layer between the project-wide and niche-level
	// defaults.
	ThundercloudConfig struct {
		Niche         NicheInfo   `toml:"niche"`
		InvarDefaults InvarConfig `toml:"invar-defaults"`
	}

	// NicheInfo names the niche a thundercloud serves.
	NicheInfo struct {
		Name        Identifier `toml:"name"`
		Description string     `toml:"description"`
	}
)

// IsValid reports whether the descriptor is structurally valid: the niche
// name is a well-formed identifier and the invar defaults hold valid values.
func (t *ThundercloudConfig) IsValid() (bool, []error) {
	var errs []error
	if t.Niche.Name == "" {
		errs = append(errs, errors.New("thundercloud.toml requires niche.name"))
	} else if ok, nerrs := t.Niche.Name.IsValid(); !ok {
		errs = append(errs, nerrs...)
	}
	if ok, ierrs := t.InvarDefaults.IsValid(); !ok {
		errs = append(errs, ierrs...)
	}
	return len(errs) == 0, errs
}
