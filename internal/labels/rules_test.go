package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/sonifycore/internal/model"
)

func TestParsePredicateOperators(t *testing.T) {
	cases := []struct {
		in   string
		v    float64
		want bool
	}{
		{">=0.7", 0.7, true},
		{">=0.7", 0.69, false},
		{">0.3", 0.31, true},
		{"<=0.3", 0.3, true},
		{"<0.3", 0.3, false},
		{"between(0.2,0.4)", 0.3, true},
		{"between(0.2,0.4)", 0.5, false},
		{"", 12345, true},
	}
	for _, c := range cases {
		p, err := ParsePredicate(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, p.Matches(c.v), "predicate %q against %v", c.in, c.v)
	}
}

func TestParsePredicateRejectsGarbage(t *testing.T) {
	_, err := ParsePredicate("wat")
	assert.Error(t, err)
}

func TestParsePredicateRejectsMalformedBetween(t *testing.T) {
	_, err := ParsePredicate("between(0.2)")
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }

func TestDefaultRuleSetEvaluatesInOrder(t *testing.T) {
	rs := DefaultRuleSet()

	assert.Equal(t, model.MomentumPos, rs.Evaluate(model.Metrics{CTR: ptr(0.9), Position: ptr(0.9)}))
	assert.Equal(t, model.MomentumNeg, rs.Evaluate(model.Metrics{CTR: ptr(0.1), Position: ptr(0.1)}))
	assert.Equal(t, model.VolatileSpike, rs.Evaluate(model.Metrics{VolatilityIndex: ptr(0.9)}))
	assert.Equal(t, model.Neutral, rs.Evaluate(model.Metrics{}))
}

func TestDefaultRuleSetSpikeDoesNotOverrideEarlierMatch(t *testing.T) {
	rs := DefaultRuleSet()
	// MOMENTUM_POS matches first and should win even if volatility would also match.
	lbl := rs.Evaluate(model.Metrics{CTR: ptr(0.9), Position: ptr(0.9), VolatilityIndex: ptr(0.9)})
	assert.Equal(t, model.MomentumPos, lbl)
}

func TestParseRuleSetRequiresTrailingDefault(t *testing.T) {
	raw := ruleSetYAML{Rules: []ruleYAML{{When: map[string]string{"ctr": ">=0.5"}, ChooseLabel: "MOMENTUM_POS"}}}
	_, err := parseRuleSet(raw)
	assert.Error(t, err)
}

func TestParseRuleSetRejectsUnknownLabel(t *testing.T) {
	raw := ruleSetYAML{Rules: []ruleYAML{{ChooseLabel: "NOT_A_LABEL"}}}
	_, err := parseRuleSet(raw)
	assert.Error(t, err)
}

func TestRuleCacheReloadsOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	write("rules:\n  - choose_label: NEUTRAL\n")
	cache := NewRuleCache()
	rs1, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Neutral, rs1.Evaluate(model.Metrics{}))

	write("rules:\n  - when: {ctr: \">=0.0\"}\n    choose_label: MOMENTUM_POS\n  - choose_label: NEUTRAL\n")
	rs2, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.MomentumPos, rs2.Evaluate(model.Metrics{CTR: ptr(0.5)}))
}

func TestRuleCacheMissingFile(t *testing.T) {
	cache := NewRuleCache()
	_, err := cache.Load("/nonexistent/path/rules.yaml")
	assert.Error(t, err)
}
