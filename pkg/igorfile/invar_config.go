// SPDX-License-Identifier: MPL-2.0

package igorfile

type (
	// InvarConfig is one layer of invar configuration. Layers merge from
	// weakest to strongest: project-wide defaults, thundercloud defaults,
	// niche defaults, directory config, per-file config. Unset fields are
	// nil so a stronger layer only overrides what it explicitly sets.
	InvarConfig struct {
		// WriteMode controls how the target is written. Effective default:
		// overwrite.
		WriteMode *WriteMode `toml:"write-mode"`
		// Target is an optional path template for the output, interpolated
		// with the effective props before use. Relative to the project root.
		Target *string `toml:"target"`
		// Interpolate gates {{key}} substitution in emitted content.
		// Effective default: true.
		Interpolate *bool `toml:"interpolate"`
		// Executable marks the emitted file as executable (mode 0o755).
		// Effective default: false.
		Executable *bool `toml:"executable"`
		// Props are the interpolation properties. Layers union their maps,
		// with the stronger layer winning per key.
		Props map[string]string `toml:"props"`
	}
)

// Merge layers other on top of c and returns the result. Scalar fields set
// on other win; props maps union with other winning per key. Neither
// receiver nor argument is mutated.
func (c InvarConfig) Merge(other InvarConfig) InvarConfig {
	out := InvarConfig{
		WriteMode:   mergeField(c.WriteMode, other.WriteMode),
		Target:      mergeField(c.Target, other.Target),
		Interpolate: mergeField(c.Interpolate, other.Interpolate),
		Executable:  mergeField(c.Executable, other.Executable),
	}
	if len(c.Props) > 0 || len(other.Props) > 0 {
		out.Props = make(map[string]string, len(c.Props)+len(other.Props))
		for k, v := range c.Props {
			out.Props[k] = v
		}
		for k, v := range other.Props {
			out.Props[k] = v
		}
	}
	return out
}

// EffectiveWriteMode returns the configured write mode, or
// WriteModeOverwrite when unset.
func (c InvarConfig) EffectiveWriteMode() WriteMode {
	if c.WriteMode != nil {
		return *c.WriteMode
	}
	return WriteModeOverwrite
}

// EffectiveInterpolate returns the configured interpolate flag, or true
// when unset.
func (c InvarConfig) EffectiveInterpolate() bool {
	if c.Interpolate != nil {
		return *c.Interpolate
	}
	return true
}

// EffectiveExecutable returns the configured executable flag, or false
// when unset.
func (c InvarConfig) EffectiveExecutable() bool {
	if c.Executable != nil {
		return *c.Executable
	}
	return false
}

// TargetTemplate returns the target path template and whether one is set.
func (c InvarConfig) TargetTemplate() (string, bool) {
	if c.Target != nil && *c.Target != "" {
		return *c.Target, true
	}
	return "", false
}

// IsValid reports whether every explicitly set field holds a valid value.
func (c InvarConfig) IsValid() (bool, []error) {
	var errs []error
	if c.WriteMode != nil {
		if ok, werrs := c.WriteMode.IsValid(); !ok {
			errs = append(errs, werrs...)
		}
	}
	for k := range c.Props {
		if ok, kerrs := Identifier(k).IsValid(); !ok {
			errs = append(errs, kerrs...)
		}
	}
	return len(errs) == 0, errs
}

func mergeField[T any](weak, strong *T) *T {
	if strong != nil {
		v := *strong
		return &v
	}
	if weak != nil {
		v := *weak
		return &v
	}
	return nil
}
