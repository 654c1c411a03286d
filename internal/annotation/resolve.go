package annotation

// SkipReason explains why a feature or scenario does not run. Exactly one
// reason is reported, chosen by precedence.
type SkipReason uint8

const (
	None SkipReason = iota
	ExplicitSkip
	OtherScenarioFocused
	OtherFeatureFocused
)

func (r SkipReason) String() string {
	switch r {
	case None:
		return "none"
	case ExplicitSkip:
		return "explicit-skip"
	case OtherScenarioFocused:
		return "other-scenario-focused"
	case OtherFeatureFocused:
		return "other-feature-focused"
	default:
		return "unknown"
	}
}

// ResolveFeature decides whether a feature is skipped given the annotations
// of every other feature in the suite.
func ResolveFeature(own Set, otherFeatures []Set) SkipReason {
	if own.Has(Skip) {
		return ExplicitSkip
	}
	if anyFocused(otherFeatures) && !own.Has(Focus) {
		return OtherFeatureFocused
	}
	return None
}

// ResolveScenario decides whether a scenario is skipped. siblings are the
// other scenarios of the same feature, parent is that feature's own set.
// Scenario focus never reaches across features.
func ResolveScenario(own Set, siblings []Set, parent Set, otherFeatures []Set) SkipReason {
	if own.Has(Skip) {
		return ExplicitSkip
	}
	if anyFocused(siblings) && !own.Has(Focus) {
		return OtherScenarioFocused
	}
	if anyFocused(otherFeatures) && !parent.Has(Focus) {
		return OtherFeatureFocused
	}
	return None
}

// Runnable reports whether something with these feature and scenario reasons
// executes. Both levels are resolved independently.
func Runnable(feature, scenario SkipReason) bool {
	return feature == None && scenario == None
}

func anyFocused(sets []Set) bool {
	for _, s := range sets {
		if s.Has(Focus) {
			return true
		}
	}
	return false
}

// Input is one feature's annotations and those of its scenarios, in order.
type Input struct {
	Feature   Set
	Scenarios []Set
}

type Resolution struct {
	Feature   SkipReason
	Scenarios []SkipReason
}

// Resolve computes skip reasons for a whole suite. "Other" is positional:
// two features or scenarios sharing a title are still distinct.
func Resolve(suite []Input) []Resolution {
	out := make([]Resolution, len(suite))
	for i, in := range suite {
		others := excluding(featureSets(suite), i)
		res := Resolution{
			Feature:   ResolveFeature(in.Feature, others),
			Scenarios: make([]SkipReason, len(in.Scenarios)),
		}
		for j, sc := range in.Scenarios {
			res.Scenarios[j] = ResolveScenario(sc, excluding(in.Scenarios, j), in.Feature, others)
		}
		out[i] = res
	}
	return out
}

func featureSets(suite []Input) []Set {
	sets := make([]Set, len(suite))
	for i, in := range suite {
		sets[i] = in.Feature
	}
	return sets
}

func excluding(sets []Set, idx int) []Set {
	out := make([]Set, 0, len(sets))
	for i, s := range sets {
		if i != idx {
			out = append(out, s)
		}
	}
	return out
}
