// SPDX-License-Identifier: MPL-2.0

package igorfile

type (
	// FeatureSet is the evaluated feature configuration of one niche.
	// A feature is active iff it is the always-active marker "@", or it is
	// selected and not deselected. Unknown features are inactive, never an
	// error. The zero value is a valid, empty feature set where only "@"
	// is active.
	FeatureSet struct {
		selected   map[Identifier]struct{}
		deselected map[Identifier]struct{}
	}
)

// NewFeatureSet builds a FeatureSet from the selected and deselected
// feature lists of a niche's options section.
func NewFeatureSet(selected, deselected []Identifier) FeatureSet {
	fs := FeatureSet{
		selected:   make(map[Identifier]struct{}, len(selected)),
		deselected: make(map[Identifier]struct{}, len(deselected)),
	}
	for _, f := range selected {
		fs.selected[f] = struct{}{}
	}
	for _, f := range deselected {
		fs.deselected[f] = struct{}{}
	}
	return fs
}

// Active reports whether the given feature is active in this set.
// The marker "@" is always active and cannot be deselected.
func (fs FeatureSet) Active(feature Identifier) bool {
	if feature == FeatureAlways {
		return true
	}
	if _, ok := fs.deselected[feature]; ok {
		return false
	}
	_, ok := fs.selected[feature]
	return ok
}

// Selected returns the selected features in unspecified order, excluding
// the implicit "@".
func (fs FeatureSet) Selected() []Identifier {
	out := make([]Identifier, 0, len(fs.selected))
	for f := range fs.selected {
		out = append(out, f)
	}
	return out
}
