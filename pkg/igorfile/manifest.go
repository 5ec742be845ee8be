// SPDX-License-Identifier: MPL-2.0

package igorfile

const (
	// ManifestFileName is the project manifest at the consumer project root.
	ManifestFileName = "CargoCult.toml"
	// DefaultNichesDirectory is where niche directories live when the
	// manifest does not override it.
	DefaultNichesDirectory = "yeth-marthter"
	// DefaultSettingsName is the base name of the per-niche settings file,
	// without the .toml extension.
	DefaultSettingsName = "igor-thettingth"
)

type (
	// ProjectManifest is the consumer project's CargoCult.toml.
	ProjectManifest struct {
		// NichesDirectory is the directory holding one subdirectory per
		// niche, relative to the project root.
		NichesDirectory string `toml:"niches-directory" mapstructure:"niches-directory"`
		// SettingsName overrides the base name of the per-niche settings
		// file.
		SettingsName string `toml:"igor-settings" mapstructure:"igor-settings"`
		// InvarDefaults is the weakest invar configuration layer, applied
		// to every niche.
		InvarDefaults InvarConfig `toml:"invar-defaults" mapstructure:"invar-defaults"`
		// Psychotropic shapes the concurrent niche schedule.
		Psychotropic PsychotropicConfig `toml:"psychotropic" mapstructure:"psychotropic"`
	}
)

// DefaultManifest returns a manifest with all defaults applied.
func DefaultManifest() *ProjectManifest {
	return &ProjectManifest{
		NichesDirectory: DefaultNichesDirectory,
		SettingsName:    DefaultSettingsName,
	}
}

// EffectiveNichesDirectory returns the configured niches directory, or the
// default when unset.
func (m *ProjectManifest) EffectiveNichesDirectory() string {
	if m.NichesDirectory != "" {
		return m.NichesDirectory
	}
	return DefaultNichesDirectory
}

// EffectiveSettingsName returns the configured settings file base name, or
// the default when unset.
func (m *ProjectManifest) EffectiveSettingsName() string {
	if m.SettingsName != "" {
		return m.SettingsName
	}
	return DefaultSettingsName
}

// IsValid reports whether the manifest is structurally valid.
func (m *ProjectManifest) IsValid() (bool, []error) {
	var errs []error
	if ok, ierrs := m.InvarDefaults.IsValid(); !ok {
		errs = append(errs, ierrs...)
	}
	if ok, perrs := m.Psychotropic.IsValid(); !ok {
		errs = append(errs, perrs...)
	}
	return len(errs) == 0, errs
}
