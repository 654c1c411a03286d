package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(
		MustNew(noop, Literal("I"), Literal("see"), Capture("text", String())),
		MustNew(noop, Literal("I"), Literal("see"), Literal("nothing")),
		MustNew(noop, Literal("I"), Literal("write"), Capture("text", String()), Literal("into"), Literal("the"), Capture("input_name", String())),
		MustNew(noop, Literal("I"), Literal("open"), Capture("url", URL())),
		MustNew(noop, Literal("I"), Literal("reload"), Literal("the"), Literal("page")),
	))
	return r
}

func TestRegistry_FirstRegisteredMatchWins(t *testing.T) {
	r := testRegistry(t)

	m, ok := r.Find("Then I see nothing").Value()

	require.True(t, ok)
	assert.Equal(t, "I see {text}", m.Definition.Description)
	assert.Equal(t, "nothing", m.Args.String("text"))
}

func TestRegistry_NoMatchCollectsEveryFailure(t *testing.T) {
	r := testRegistry(t)

	nm, failed := r.Find("I wrote hello into the search").Failure()

	require.True(t, failed)
	assert.Equal(t, "I wrote hello into the search", nm.Input)
	require.Len(t, nm.Failures, 5)
	for i, d := range r.Definitions() {
		assert.Same(t, d, nm.Failures[i].Definition)
	}
	assert.Equal(t, "write", nm.Failures[2].Failure.Expected)
	assert.Equal(t, "wrote", nm.Failures[2].Failure.Actual)
}

func TestRegistry_RejectsDuplicateDescriptions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(MustNew(noop, Literal("I"), Literal("see"), Capture("text", String()))))

	err := r.Register(MustNew(noop, Literal("I"), Literal("see"), Capture("text", URL())))

	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Len(t, r.Definitions(), 1)
}

func TestSuggest_RanksByDistinctiveOverlap(t *testing.T) {
	r := testRegistry(t)
	nm, _ := r.Find("I write hello to the search").Failure()

	suggestions := Suggest(nm.Input, nm.Failures, DefaultSuggestions)

	require.Len(t, suggestions, 3)
	assert.Equal(t, "I write {text} into the {input_name}", suggestions[0].Definition.Description)
	assert.Greater(t, suggestions[0].Score, suggestions[1].Score)
}

func TestSuggest_StableForEqualScores(t *testing.T) {
	r := testRegistry(t)
	nm, _ := r.Find("I jump").Failure()

	suggestions := Suggest(nm.Input, nm.Failures, -1)

	require.Len(t, suggestions, 5)
	for i, s := range suggestions {
		assert.Equal(t, 1, s.Score)
		assert.Same(t, nm.Failures[i].Definition, s.Definition)
	}
}

func TestSuggest_ConnectivesWeighLess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(
		MustNew(noop, Literal("I"), Literal("look"), Literal("at"), Literal("the"), Literal("page")),
		MustNew(noop, Literal("I"), Literal("reload"), Capture("target", String())),
	))
	nm, _ := r.Find("please reload the page now").Failure()

	suggestions := Suggest(nm.Input, nm.Failures, DefaultSuggestions)

	require.Len(t, suggestions, 2)
	assert.Equal(t, 3, suggestions[0].Score)
	assert.Equal(t, "I look at the page", suggestions[0].Definition.Description)
	assert.Equal(t, 2, suggestions[1].Score)
}
