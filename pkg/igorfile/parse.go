// SPDX-License-Identifier: MPL-2.0

package igorfile

import (
	_ "embed"
	"errors"
	"fmt"

	"igor-cli/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed igorfile_schema.cue
var igorfileSchema string

// ParseManifestBytes parses and validates a project manifest
// (CargoCult.toml). The TOML is decoded to a map, unified with the embedded
// CUE schema, then decoded into the manifest struct.
func ParseManifestBytes(data []byte, path string) (*ProjectManifest, error) {
	var manifest ProjectManifest
	if err := decodeTOML(data, path, "#Manifest", &manifest); err != nil {
		return nil, err
	}
	if ok, errs := manifest.IsValid(); !ok {
		return nil, &BadConfigError{Path: path, Cause: errors.Join(errs...)}
	}
	return &manifest, nil
}

// ParseNicheSettingsBytes parses and validates a per-niche settings file.
func ParseNicheSettingsBytes(data []byte, path string) (*NicheSettings, error) {
	var settings NicheSettings
	if err := decodeTOML(data, path, "#NicheSettings", &settings); err != nil {
		return nil, err
	}
	if ok, errs := settings.IsValid(); !ok {
		return nil, &BadConfigError{Path: path, Cause: errors.Join(errs...)}
	}
	return &settings, nil
}

// ParseThundercloudConfigBytes parses and validates a thundercloud.toml
// descriptor.
func ParseThundercloudConfigBytes(data []byte, path string) (*ThundercloudConfig, error) {
	var cfg ThundercloudConfig
	if err := decodeTOML(data, path, "#ThundercloudConfig", &cfg); err != nil {
		return nil, err
	}
	if ok, errs := cfg.IsValid(); !ok {
		return nil, &BadConfigError{Path: path, Cause: errors.Join(errs...)}
	}
	return &cfg, nil
}

// ParseFileConfigBytes parses a per-file or directory-scoped +config bolt
// body into an InvarConfig layer.
func ParseFileConfigBytes(data []byte, path string) (*InvarConfig, error) {
	var cfg InvarConfig
	if err := decodeTOML(data, path, "#FileConfig", &cfg); err != nil {
		return nil, err
	}
	if ok, errs := cfg.IsValid(); !ok {
		return nil, &BadConfigError{Path: path, Cause: errors.Join(errs...)}
	}
	return &cfg, nil
}

// decodeTOML runs the shared decode flow: size check, TOML to map, CUE
// schema unification, then TOML into the destination struct.
func decodeTOML(data []byte, path, schemaPath string, dst any) error {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return &BadConfigError{Path: path, Cause: err}
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return &BadConfigError{Path: path, Cause: err}
	}

	if err := validateWithSchema(raw, schemaPath, path); err != nil {
		return &BadConfigError{Path: path, Cause: err}
	}

	if err := toml.Unmarshal(data, dst); err != nil {
		return &BadConfigError{Path: path, Cause: err}
	}
	return nil
}

// validateWithSchema unifies a decoded TOML map with one of the embedded
// schema definitions. Concrete(false) because all fields are optional at
// the schema level; structural requirements live in the IsValid methods.
func validateWithSchema(raw map[string]any, schemaPath, path string) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(igorfileSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile igorfile schema: %w", schemaValue.Err())
	}

	userValue := ctx.Encode(raw)
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schema.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schema.Err())
	}

	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}
	return nil
}
