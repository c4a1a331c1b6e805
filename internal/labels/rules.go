// Package labels implements the Label Decider: a declarative rule list
// evaluated in order, with an optional learned-model override, parsing
// once and caching a rule file by path+mtime.
package labels

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/schollz/sonifycore/internal/corerr"
	"github.com/schollz/sonifycore/internal/model"
)

// Predicate is one of >=x, >x, <=x, <x, between(a,b), parsed from rule YAML.
type Predicate struct {
	Op   string // ">=", ">", "<=", "<", "between", ""(empty = always matches)
	A, B float64
}

func (p Predicate) Matches(v float64) bool {
	switch p.Op {
	case ">=":
		return v >= p.A
	case ">":
		return v > p.A
	case "<=":
		return v <= p.A
	case "<":
		return v < p.A
	case "between":
		return v >= p.A && v <= p.B
	case "":
		return true
	default:
		return false
	}
}

// ParsePredicate parses a predicate string like ">=0.7", "<0.3",
// "between(0.2,0.4)".
func ParsePredicate(s string) (Predicate, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "between("):
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "between("), ")")
		parts := strings.Split(inner, ",")
		if len(parts) != 2 {
			return Predicate{}, fmt.Errorf("labels: malformed between predicate %q", s)
		}
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return Predicate{}, fmt.Errorf("labels: bad between bound: %w", err)
		}
		b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return Predicate{}, fmt.Errorf("labels: bad between bound: %w", err)
		}
		return Predicate{Op: "between", A: a, B: b}, nil
	case strings.HasPrefix(s, ">="):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[2:]), 64)
		return Predicate{Op: ">=", A: v}, err
	case strings.HasPrefix(s, "<="):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[2:]), 64)
		return Predicate{Op: "<=", A: v}, err
	case strings.HasPrefix(s, ">"):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
		return Predicate{Op: ">", A: v}, err
	case strings.HasPrefix(s, "<"):
		v, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
		return Predicate{Op: "<", A: v}, err
	case s == "":
		return Predicate{Op: ""}, nil
	default:
		return Predicate{}, fmt.Errorf("labels: unrecognized predicate %q", s)
	}
}

// ruleYAML and ruleSetYAML model the on-disk rule file shape.
type ruleYAML struct {
	When        map[string]string `yaml:"when"`
	ChooseLabel string            `yaml:"choose_label"`
}

type ruleSetYAML struct {
	Rules []ruleYAML `yaml:"rules"`
}

// Rule is a parsed rule: predicates must all match (conjunction across
// metrics) for ChooseLabel to apply. An empty When always matches and must
// terminate the list.
type Rule struct {
	When        map[string]Predicate
	ChooseLabel model.Label
}

// RuleSet is an ordered list of rules, first-match-wins, ending in a default.
type RuleSet struct {
	Rules []Rule
}

// Evaluate returns the first matching rule's label. RuleSet construction
// guarantees a trailing default, so Evaluate always returns a label.
func (rs RuleSet) Evaluate(m model.Metrics) model.Label {
	for _, r := range rs.Rules {
		if len(r.When) == 0 {
			return r.ChooseLabel
		}
		allMatch := true
		for metric, pred := range r.When {
			v, ok := m.Get(metric)
			if !ok {
				allMatch = false
				break
			}
			if !pred.Matches(v) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return r.ChooseLabel
		}
	}
	return model.Neutral
}

func parseRuleSet(raw ruleSetYAML) (RuleSet, error) {
	var rs RuleSet
	hasDefault := false
	for i, ry := range raw.Rules {
		when := map[string]Predicate{}
		for metric, predStr := range ry.When {
			p, err := ParsePredicate(predStr)
			if err != nil {
				return RuleSet{}, fmt.Errorf("labels: rule %d: %w", i, err)
			}
			when[metric] = p
		}
		lbl := model.Label(ry.ChooseLabel)
		if !lbl.IsValid() {
			return RuleSet{}, fmt.Errorf("labels: rule %d: unknown label %q", i, ry.ChooseLabel)
		}
		hasDefault = len(when) == 0
		rs.Rules = append(rs.Rules, Rule{When: when, ChooseLabel: lbl})
	}
	if !hasDefault {
		return RuleSet{}, corerr.New(corerr.MissingRules, "rule file has no trailing default rule (empty when:)")
	}
	return rs, nil
}

// ruleCacheEntry caches a parsed rule file keyed by path+mtime so a rule
// file is only reparsed after it changes on disk.
type ruleCacheEntry struct {
	mtime int64
	rules RuleSet
}

// RuleCache is a process-wide cache of parsed rule files.
type RuleCache struct {
	mu      sync.RWMutex
	entries map[string]ruleCacheEntry
}

// NewRuleCache constructs an empty cache.
func NewRuleCache() *RuleCache {
	return &RuleCache{entries: make(map[string]ruleCacheEntry)}
}

// Load returns the RuleSet for path, parsing and caching it on first use or
// whenever the file's mtime changes.
func (c *RuleCache) Load(path string) (RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("labels: stat rules file: %w", err)
	}
	mtime := info.ModTime().UnixNano()

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && entry.mtime == mtime {
		return entry.rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("labels: read rules file: %w", err)
	}
	var raw ruleSetYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RuleSet{}, fmt.Errorf("labels: parse rules file: %w", err)
	}
	rs, err := parseRuleSet(raw)
	if err != nil {
		return RuleSet{}, err
	}

	c.mu.Lock()
	c.entries[path] = ruleCacheEntry{mtime: mtime, rules: rs}
	c.mu.Unlock()

	return rs, nil
}

// DefaultRuleSet is the built-in rule set used when no rule file is
// configured: a simple momentum-threshold table over ctr/position, ending
// in the mandatory NEUTRAL default.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Rules: []Rule{
			{
				When:        map[string]Predicate{"ctr": {Op: ">=", A: 0.7}, "position": {Op: ">=", A: 0.6}},
				ChooseLabel: model.MomentumPos,
			},
			{
				When:        map[string]Predicate{"ctr": {Op: "<=", A: 0.3}, "position": {Op: "<=", A: 0.4}},
				ChooseLabel: model.MomentumNeg,
			},
			{
				When:        map[string]Predicate{"volatility_index": {Op: ">=", A: 0.7}},
				ChooseLabel: model.VolatileSpike,
			},
			{
				When:        map[string]Predicate{},
				ChooseLabel: model.Neutral,
			},
		},
	}
}
