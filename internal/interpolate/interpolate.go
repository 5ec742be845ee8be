// SPDX-License-Identifier: MPL-2.0

// Package interpolate substitutes {{key}} occurrences from a property map
// in file contents and path templates.
package interpolate

import "regexp"

// keyPattern matches a {{key}} occurrence whose key is a well-formed
// identifier. Double braces around anything else are left alone.
var keyPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Apply replaces every {{key}} whose key is present in props. Unknown keys
// stay literal. The scan is a single left-to-right pass; substituted
// values are never rescanned.
func Apply(s string, props map[string]string) string {
	if len(props) == 0 {
		return s
	}
	return keyPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := props[key]; ok {
			return v
		}
		return m
	})
}

// ApplyBytes is Apply for raw file contents.
func ApplyBytes(b []byte, props map[string]string) []byte {
	if len(props) == 0 {
		return b
	}
	return keyPattern.ReplaceAllFunc(b, func(m []byte) []byte {
		key := string(m[2 : len(m)-2])
		if v, ok := props[key]; ok {
			return []byte(v)
		}
		return m
	})
}
