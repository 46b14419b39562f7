// Package tajweed scans Arabic text for Tajweed-rule trigger patterns and
// produces severity-weighted violations with a 0–100 score, plus a phoneme
// classification of the text.
//
// The engine is a shallow pattern scanner over a static rule table, not a
// linguistic parser: a trigger character must be immediately followed by a
// follow character, where the follower of a word-final character is the next
// word's initial character, and rules without a trigger set match on the
// word-final character only. These are deliberate scope limitations carried
// over from the rule table's source material.
package tajweed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// Severity weights a rule violation's impact on the score.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid reports whether s is a recognised severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Penalty returns the score deduction for one violation of this severity.
func (s Severity) Penalty() int {
	switch s {
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	default:
		return 2
	}
}

// AudioHint carries the acoustic metadata attached to a rule, forwarded to
// UI consumers that play reference audio for the rule.
type AudioHint struct {
	// Duration is the prescribed length class, e.g. "2 counts".
	Duration string `yaml:"duration"`

	// FrequencyRange is an indicative frequency band, e.g. "200-800 Hz".
	// May be empty.
	FrequencyRange string `yaml:"frequency_range"`
}

// Rule is one entry of the Tajweed rule table. Immutable once loaded.
type Rule struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Example     string `yaml:"example"`

	// Trigger is the set of characters that arm the rule. When empty the
	// rule instead matches a word whose final character is in FollowedBy.
	Trigger []string `yaml:"trigger"`

	// FollowedBy is the set of characters that must immediately follow a
	// trigger character, possibly across a word boundary.
	FollowedBy []string `yaml:"followed_by"`

	Severity Severity  `yaml:"severity"`
	Audio    AudioHint `yaml:"audio"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules parses a YAML rule table from r, preserving document order.
func LoadRules(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rf ruleFile
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("tajweed: decode rules: %w", err)
	}
	for i, rule := range rf.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("tajweed: rules[%d] has no name", i)
		}
		if !rule.Severity.IsValid() {
			return nil, fmt.Errorf("tajweed: rule %q has invalid severity %q", rule.Name, rule.Severity)
		}
	}
	return rf.Rules, nil
}

var (
	defaultRules     []Rule
	defaultRulesOnce sync.Once
)

// DefaultRules returns the embedded rule table, parsed on first call. The
// returned slice is shared and must be treated as read-only.
func DefaultRules() []Rule {
	defaultRulesOnce.Do(func() {
		var err error
		defaultRules, err = LoadRules(bytes.NewReader(rulesYAML))
		if err != nil {
			// The embedded table is part of the build; failing to parse it
			// is a programming error, not a runtime condition.
			panic("tajweed: embedded rule table: " + err.Error())
		}
	})
	return defaultRules
}
