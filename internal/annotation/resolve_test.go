package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	none       = NewSet()
	focused    = NewSet(Focus)
	skipped    = NewSet(Skip)
	contradict = NewSet(Focus, Skip)
)

func TestParse(t *testing.T) {
	s, err := Parse([]string{"@focus", "@ShouldFail"})
	require.NoError(t, err)
	assert.True(t, s.Has(Focus))
	assert.True(t, s.Has(ShouldFail))
	assert.False(t, s.Has(Skip))
	assert.Equal(t, "{focus,shouldfail}", s.String())
}

func TestParse_RejectsUnknown(t *testing.T) {
	_, err := Parse([]string{"@focus", "@smoke"})
	assert.ErrorIs(t, err, ErrUnknownAnnotation)
	assert.Contains(t, err.Error(), "@smoke")
}

func TestParse_Empty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, none, s)
}

func TestResolveFeature(t *testing.T) {
	tests := []struct {
		name   string
		own    Set
		others []Set
		want   SkipReason
	}{
		{"focused feature runs", focused, []Set{none}, None},
		{"unfocused feature loses to focus", none, []Set{focused}, OtherFeatureFocused},
		{"explicit skip", skipped, []Set{none}, ExplicitSkip},
		{"sibling of skipped runs", none, []Set{skipped}, None},
		{"two focused both run", focused, []Set{focused}, None},
		{"skip beats own focus", contradict, []Set{none}, ExplicitSkip},
		{"skip beats other focus", skipped, []Set{focused}, ExplicitSkip},
		{"alone", none, nil, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFeature(tt.own, tt.others))
		})
	}
}

func TestResolveScenario(t *testing.T) {
	tests := []struct {
		name          string
		own           Set
		siblings      []Set
		parent        Set
		otherFeatures []Set
		want          SkipReason
	}{
		{"focused scenario runs", focused, []Set{none}, focused, nil, None},
		{"sibling focused", none, []Set{focused}, focused, nil, OtherScenarioFocused},
		{"explicit skip beats everything", contradict, []Set{focused}, none, []Set{focused}, ExplicitSkip},
		{"sibling focus before feature focus", none, []Set{focused}, none, []Set{focused}, OtherScenarioFocused},
		{"other feature focused", none, nil, none, []Set{focused}, OtherFeatureFocused},
		{"focused scenario in unfocused feature", focused, nil, none, []Set{focused}, OtherFeatureFocused},
		{"scenario of focused feature", none, []Set{none}, focused, []Set{focused}, None},
		{"plain", none, []Set{none}, none, []Set{none}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveScenario(tt.own, tt.siblings, tt.parent, tt.otherFeatures))
		})
	}
}

func TestResolve_Suite(t *testing.T) {
	suite := []Input{
		{Feature: focused, Scenarios: []Set{focused, none}},
		{Feature: none, Scenarios: []Set{focused}},
		{Feature: skipped, Scenarios: []Set{none}},
	}

	res := Resolve(suite)

	require.Len(t, res, 3)
	assert.Equal(t, None, res[0].Feature)
	assert.Equal(t, []SkipReason{None, OtherScenarioFocused}, res[0].Scenarios)
	assert.Equal(t, OtherFeatureFocused, res[1].Feature)
	assert.Equal(t, []SkipReason{OtherFeatureFocused}, res[1].Scenarios)
	assert.Equal(t, ExplicitSkip, res[2].Feature)
	assert.Equal(t, []SkipReason{OtherFeatureFocused}, res[2].Scenarios)
}

func TestResolve_ScenarioFocusStaysInsideFeature(t *testing.T) {
	res := Resolve([]Input{
		{Feature: none, Scenarios: []Set{focused, none}},
		{Feature: none, Scenarios: []Set{none}},
	})

	assert.Equal(t, []SkipReason{None, OtherScenarioFocused}, res[0].Scenarios)
	assert.Equal(t, None, res[1].Feature)
	assert.Equal(t, []SkipReason{None}, res[1].Scenarios)
}

func TestRunnable(t *testing.T) {
	assert.True(t, Runnable(None, None))
	assert.False(t, Runnable(OtherFeatureFocused, None))
	assert.False(t, Runnable(None, ExplicitSkip))
}

func TestSkipReason_String(t *testing.T) {
	assert.Equal(t, "other-feature-focused", OtherFeatureFocused.String())
	assert.Equal(t, "explicit-skip", ExplicitSkip.String())
}
