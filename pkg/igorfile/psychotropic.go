// SPDX-License-Identifier: MPL-2.0

package igorfile

type (
	// PsychotropicConfig is the [psychotropic] section of the project
	// manifest: the ordered list of cues that shapes the concurrent niche
	// schedule.
	PsychotropicConfig struct {
		Cues []CueConfig `toml:"cues"`
	}

	// CueConfig binds a niche name to the cues it waits for. Wait-for names
	// must refer to cues declared earlier in the list; that rule keeps the
	// schedule a DAG without a separate cycle check.
	CueConfig struct {
		Name Identifier `toml:"name"`
		// WaitFor lists cue names whose terminal state this cue waits on.
		WaitFor []Identifier `toml:"wait-for"`
		// UseThundercloud, when explicitly false, marks a barrier-only cue
		// that has no niche directory of its own. Default: true.
		UseThundercloud *bool `toml:"use-thundercloud"`
	}
)

// EffectiveUseThundercloud returns whether the cue names a real niche
// (true when unset).
func (c CueConfig) EffectiveUseThundercloud() bool {
	if c.UseThundercloud != nil {
		return *c.UseThundercloud
	}
	return true
}

// IsValid reports whether all cue names and wait-for references are
// well-formed identifiers. Ordering rules (duplicates, forward references)
// are enforced when the schedule is built.
func (p PsychotropicConfig) IsValid() (bool, []error) {
	var errs []error
	for _, cue := range p.Cues {
		if ok, nerrs := cue.Name.IsValid(); !ok {
			errs = append(errs, nerrs...)
		}
		for _, dep := range cue.WaitFor {
			if ok, derrs := dep.IsValid(); !ok {
				errs = append(errs, derrs...)
			}
		}
	}
	return len(errs) == 0, errs
}
