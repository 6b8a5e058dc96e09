package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidFile(t *testing.T) {
	p, err := Load("testdata/policy.cue")
	require.NoError(t, err)

	assert.Equal(t, "SYSTEM", p.Authority)
	assert.Equal(t, "SINK", p.Sink)
	assert.Equal(t, int64(10000), p.MaxAmount)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.cue")
	assert.Error(t, err)
}

func TestParse_CapOptional(t *testing.T) {
	p, err := Parse([]byte(`
authority: "SYSTEM"
sink:      "SINK"
`), "inline.cue")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.MaxAmount, "missing maxAmount means uncapped")
}

func TestParse_MissingAuthority(t *testing.T) {
	_, err := Parse([]byte(`sink: "SINK"`), "inline.cue")
	assert.Error(t, err)
}

func TestParse_EmptyAuthority(t *testing.T) {
	_, err := Parse([]byte(`
authority: ""
sink:      "SINK"
`), "inline.cue")
	assert.Error(t, err)
}

func TestParse_NegativeCap(t *testing.T) {
	_, err := Parse([]byte(`
authority: "SYSTEM"
sink:      "SINK"
maxAmount: -5
`), "inline.cue")
	assert.Error(t, err)
}

func TestParse_AuthorityEqualsSink(t *testing.T) {
	_, err := Parse([]byte(`
authority: "SYSTEM"
sink:      "SYSTEM"
`), "inline.cue")
	assert.Error(t, err)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte(`authority: "SYSTEM`), "broken.cue")
	assert.Error(t, err)
	// Positioned error carries the filename.
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, "SYSTEM", p.Authority)
	assert.Equal(t, "SINK", p.Sink)
	assert.Zero(t, p.MaxAmount)
}
