package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareOrdersBuiltins(t *testing.T) {
	p := Default()

	assert.True(t, p.Compare(Standard, Basic, GT))
	assert.True(t, p.Compare(Standard, Standard, GE))
	assert.True(t, p.Compare(Standard, Standard, LE))
	assert.True(t, p.Compare(Lite, Developer, LT))
	assert.False(t, p.Compare(Developer, Enterprise, LE))
	assert.True(t, p.Compare(Developer, Enterprise, GT), "developer is the maximal tier")
	assert.False(t, p.Compare(Lite, Basic, EQ))
}

func TestCompareFailsClosedOnUnknown(t *testing.T) {
	p := Default()

	for _, op := range []Op{GE, LE, GT, LT} {
		assert.False(t, p.Compare("L9", Lite, op), op)
		assert.False(t, p.Compare(Lite, "L9", op), op)
	}
	assert.True(t, p.Compare("L9", "L9", EQ))
	assert.False(t, p.Compare("L9", "L8", EQ))
	assert.False(t, p.Compare(Lite, Lite, Op("between")))
}

func TestNormalize(t *testing.T) {
	p := Default()

	assert.Equal(t, Professional, p.Normalize("professional", Standard))
	assert.Equal(t, Professional, p.Normalize("PROFESSIONAL", Standard))
	assert.Equal(t, Basic, p.Normalize("l2", Standard))
	assert.Equal(t, Developer, p.Normalize("LD", Standard))
	assert.Equal(t, Standard, p.Normalize("platinum", Standard))
	assert.Equal(t, Standard, p.Normalize("", Standard))
}

func TestNewPolicyOverridesAndExtends(t *testing.T) {
	p, err := NewPolicy([]Level{
		{Code: "l1", Name: "Lite", Limits: Limits{Count: 1, Domains: 1}},
		{Code: "LX", Name: "Extended Support", Limits: Limits{Count: 50}},
	})
	require.NoError(t, err)

	assert.Equal(t, Limits{Count: 1, Domains: 1}, p.LimitsFor(Lite))
	assert.Equal(t, Limits{}, p.LimitsFor(Standard))
	assert.True(t, p.Compare("LX", Developer, GT), "extension tiers rank after built-ins")
	assert.Equal(t, Tier("LX"), p.Normalize("extended support", Lite))
	assert.Equal(t, "Extended Support", p.Codes()["LX"])
	assert.Len(t, p.Levels(), 7)
}

func TestNewPolicyRejectsBadLevels(t *testing.T) {
	_, err := NewPolicy([]Level{{Name: "Nameless"}})
	assert.Error(t, err)

	_, err = NewPolicy([]Level{{Code: "LZ", Name: "basic"}})
	assert.Error(t, err, "name collides with built-in Basic")
}

func TestTierHelpers(t *testing.T) {
	p := Default()
	assert.True(t, p.IsStandard(Standard))
	assert.False(t, p.IsStandard(Basic))
	assert.True(t, p.IsProfessional(Enterprise))
	assert.False(t, p.IsProfessional(Standard))

	op, ok := ParseOp(">=")
	assert.True(t, ok)
	assert.Equal(t, GE, op)
	_, ok = ParseOp("~")
	assert.False(t, ok)
}
