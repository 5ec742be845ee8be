// SPDX-License-Identifier: MPL-2.0

// Package igorfile defines the configuration surface of an igor project:
// the project manifest (CargoCult.toml), per-niche settings files,
// thundercloud descriptors, per-file invar configuration, and the feature
// set that gates generation. The types here are shared between the engine
// under internal/ and embedders that drive igor programmatically.
package igorfile
