package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/filter"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

func named(names ...string) []model.Sample {
	out := make([]model.Sample, len(names))
	for i, n := range names {
		out[i] = model.Sample{ID: n + "-id", Name: n}
	}
	return out
}

func TestGlobSuffix(t *testing.T) {
	m, err := filter.Compile("glob", "*A")
	require.NoError(t, err)

	got := m.Filter(named("s1A", "s1B", "s2A"))
	assert.Equal(t, []string{"s1A", "s2A"}, model.SampleNames(got))
}

func TestGlobSemantics(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*A", "s1A", true},
		{"*A", "s1AB", false},
		{"s?A", "s1A", true},
		{"s?A", "s12A", false},
		{"s[12]A", "s2A", true},
		{"s[!12]A", "s2A", false},
		{"s[!12]A", "s3A", true},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"x(1)+", "x(1)+", true},
		{"open[", "open[", true},
		{"[a-c]x", "bx", true},
		{"[a-c]x", "dx", false},
		{"[a-]x", "-x", true},
		{"[z-a]x", "ax", false},
		{"[z-a]x", "zx", false},
		{"[!z-a]x", "ax", true},
		{"[z-ab]x", "bx", true},
		{"[z-ab]x", "ax", false},
		{"*", "", true},
	}
	for _, c := range cases {
		m, err := filter.Compile("glob", c.pattern)
		require.NoError(t, err, c.pattern)
		assert.Equal(t, c.want, m.Match(c.name), "%q against %q", c.pattern, c.name)
	}
}

func TestRegexSearchesAnywhere(t *testing.T) {
	m, err := filter.Compile("regex", "LIN28")
	require.NoError(t, err)
	assert.True(t, m.Match("HEK293_LIN28B_rep1"))
	assert.False(t, m.Match("HEK293_ctrl"))

	anchored, err := filter.Compile("regex", "^LIN28")
	require.NoError(t, err)
	assert.False(t, anchored.Match("HEK293_LIN28B_rep1"))
}

func TestEmptyPatternKeepsEverything(t *testing.T) {
	m, err := filter.Compile("regex", "")
	require.NoError(t, err)
	in := named("a", "b")
	assert.Equal(t, in, m.Filter(in))
	assert.Equal(t, "all samples", m.String())
}

func TestInvalidPatterns(t *testing.T) {
	_, err := filter.Compile("regex", "(unclosed")
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))

	_, err = filter.Compile("fuzzy", "x")
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))
}

func TestDefaultModeIsGlob(t *testing.T) {
	m, err := filter.Compile("", "s1*")
	require.NoError(t, err)
	assert.Equal(t, "glob", m.Mode())
	assert.True(t, m.Match("s1A"))
	assert.False(t, m.Match("xs1A"))
}
