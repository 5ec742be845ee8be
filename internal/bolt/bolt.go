// SPDX-License-Identifier: MPL-2.0

// Package bolt decodes the filenames of thundercloud and invar trees into
// their function, feature gate, placeholder identity and escaped base name.
package bolt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"igor-cli/pkg/igorfile"
)

const (
	// FunctionOption emits the target if its feature is active.
	FunctionOption Function = "option"
	// FunctionExample emits the target only when it does not exist yet.
	FunctionExample Function = "example"
	// FunctionOverwrite emits the target unconditionally.
	FunctionOverwrite Function = "overwrite"
	// FunctionFragment splices its body into a placeholder of an existing
	// target.
	FunctionFragment Function = "fragment"
	// FunctionIgnore suppresses every action sharing its target path.
	FunctionIgnore Function = "ignore"
	// FunctionConfig contributes a per-file configuration layer instead of
	// an action.
	FunctionConfig Function = "config"

	configSuffix = ".toml"
	dotEscape    = "dot_"
	literalEscape = "x_"
)

var (
	// ErrBadName is the sentinel error wrapped by BadNameError.
	ErrBadName = errors.New("bad file name")

	// infixPattern matches the part of a filename after a "+": an optional
	// hyphen (tolerated for empty bases), the function token, up to two
	// "-"-separated segments, and everything from the first dot onward as
	// the extension.
	infixPattern = regexp.MustCompile(`^(-?)([a-z]+)(?:-([^-.]+)(?:-([^-.]+))?)?(\..*)?$`)
)

type (
	// Function is the role a file plays in a source tree, encoded in its
	// name.
	Function string

	// ParsedName is a decoded source file name.
	ParsedName struct {
		// Base is the target base name after dot_/x_ unescaping, without
		// the extension.
		Base string
		// Function is the decoded role. Plain files are FunctionOption.
		Function Function
		// Feature gates the file. Defaults to the always-active marker "@".
		Feature igorfile.Identifier
		// Placeholder is the splice site identity for fragments. For a
		// fragment without an explicit placeholder segment it equals the
		// feature.
		Placeholder igorfile.Identifier
		// Ext is the target extension including the leading dot, or "".
		// For config bolts the trailing .toml of the source name is not
		// part of the extension.
		Ext string
		// Plain marks a file whose name carries no recognized infix.
		Plain bool
	}

	// BadNameError is returned when a filename carries a known function
	// token but a malformed feature or placeholder. It wraps ErrBadName
	// for errors.Is() compatibility.
	BadNameError struct {
		Name   string
		Reason string
	}
)

// Priority orders emitting functions for one target within a niche run:
// options land first, fragments last. Ignore and Config never emit, so
// their priority is never consulted by the planner sort.
func (f Function) Priority() int {
	switch f {
	case FunctionOption:
		return 0
	case FunctionExample:
		return 1
	case FunctionOverwrite:
		return 2
	case FunctionFragment:
		return 3
	default:
		return 4
	}
}

// IsValid reports whether the Function is one of the defined tokens.
func (f Function) IsValid() (bool, []error) {
	switch f {
	case FunctionOption, FunctionExample, FunctionOverwrite, FunctionFragment, FunctionIgnore, FunctionConfig:
		return true, nil
	default:
		return false, []error{fmt.Errorf("unknown function token %q", string(f))}
	}
}

// String returns the string representation of the Function.
func (f Function) String() string { return string(f) }

// Error implements the error interface for BadNameError.
func (e *BadNameError) Error() string {
	return fmt.Sprintf("bad file name %q: %s", e.Name, e.Reason)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *BadNameError) Unwrap() error {
	return ErrBadName
}

// Parse decodes a single path component. Files whose names carry no "+"
// followed by a known function token are plain: an Option gated on "@"
// with the literal name as target. A known function token with a malformed
// feature or placeholder is a BadNameError.
func Parse(name string) (ParsedName, error) {
	for i := strings.IndexByte(name, '+'); i >= 0; {
		infix := name[i+1:]
		if m := infixPattern.FindStringSubmatch(infix); m != nil {
			fn := Function(m[2])
			if ok, _ := fn.IsValid(); ok {
				return parseInfix(name, name[:i], fn, m)
			}
		}
		next := strings.IndexByte(name[i+1:], '+')
		if next < 0 {
			break
		}
		i += 1 + next
	}
	return plainName(name), nil
}

func parseInfix(name, rawBase string, fn Function, m []string) (ParsedName, error) {
	hyphen, feature, placeholder, ext := m[1], m[3], m[4], m[5]

	// A hyphen directly after the "+" is only the empty-base spelling.
	if hyphen == "-" && rawBase != "" {
		return plainName(name), nil
	}

	parsed := ParsedName{
		Base:     unescape(rawBase),
		Function: fn,
		Feature:  igorfile.FeatureAlways,
		Ext:      ext,
	}

	if feature != "" {
		parsed.Feature = igorfile.Identifier(feature)
		if ok, _ := parsed.Feature.IsFeature(); !ok {
			return ParsedName{}, &BadNameError{Name: name, Reason: fmt.Sprintf("malformed feature %q", feature)}
		}
	}

	if placeholder != "" {
		parsed.Placeholder = igorfile.Identifier(placeholder)
		if ok, _ := parsed.Placeholder.IsValid(); !ok {
			return ParsedName{}, &BadNameError{Name: name, Reason: fmt.Sprintf("malformed placeholder %q", placeholder)}
		}
	}

	if fn == FunctionFragment && parsed.Placeholder == "" {
		if ok, _ := parsed.Feature.IsValid(); !ok {
			return ParsedName{}, &BadNameError{Name: name, Reason: "fragment needs a placeholder or a named feature"}
		}
		parsed.Placeholder = parsed.Feature
	}

	if fn == FunctionConfig {
		if !strings.HasSuffix(parsed.Ext, configSuffix) {
			return ParsedName{}, &BadNameError{Name: name, Reason: "config bolt must end in .toml"}
		}
		parsed.Ext = strings.TrimSuffix(parsed.Ext, configSuffix)
	}

	return parsed, nil
}

func plainName(name string) ParsedName {
	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base, ext = name[:i], name[i:]
	}
	return ParsedName{
		Base:     base,
		Function: FunctionOption,
		Feature:  igorfile.FeatureAlways,
		Ext:      ext,
		Plain:    true,
	}
}

func unescape(base string) string {
	if rest, ok := strings.CutPrefix(base, dotEscape); ok {
		return "." + rest
	}
	if rest, ok := strings.CutPrefix(base, literalEscape); ok {
		return rest
	}
	return base
}

// TargetName is the output file name this source file addresses: the
// unescaped base plus the extension.
func (p ParsedName) TargetName() string {
	return p.Base + p.Ext
}

// DirectoryScoped reports whether a config bolt applies to its whole
// directory rather than a single target. The canonical spelling is
// dot_+config-FEATURE.toml, whose unescaped base is ".".
func (p ParsedName) DirectoryScoped() bool {
	return p.Function == FunctionConfig && p.Base == "." && p.Ext == ""
}

// Canonical re-encodes the parsed name into its canonical source spelling,
// re-applying the dot_/x_ escapes the unescape step consumed.
func (p ParsedName) Canonical() string {
	if p.Plain {
		return p.Base + p.Ext
	}
	base := p.Base
	if rest, ok := strings.CutPrefix(base, "."); ok {
		base = dotEscape + rest
	} else if strings.HasPrefix(base, dotEscape) || strings.HasPrefix(base, literalEscape) {
		base = literalEscape + base
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteByte('+')
	sb.WriteString(string(p.Function))
	sb.WriteByte('-')
	sb.WriteString(string(p.Feature))
	if p.Function == FunctionFragment && p.Placeholder != p.Feature {
		sb.WriteByte('-')
		sb.WriteString(string(p.Placeholder))
	}
	sb.WriteString(p.Ext)
	if p.Function == FunctionConfig {
		sb.WriteString(configSuffix)
	}
	return sb.String()
}
