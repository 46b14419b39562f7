package tajweed

import "fmt"

// Violation is one rule match at a specific position in the text. Positions
// are 0-based: the word's index among whitespace-delimited words, then the
// character's rune index within that word.
type Violation struct {
	Rule        string    `json:"rule"`
	Description string    `json:"description"`
	Example     string    `json:"example"`
	WordIndex   int       `json:"word_index"`
	CharIndex   int       `json:"char_index"`
	Severity    Severity  `json:"severity"`
	Audio       AudioHint `json:"audio"`
	Message     string    `json:"message"`
}

// Report is the result of validating one piece of text.
type Report struct {
	// Score starts at 100 and loses 10/5/2 points per high/medium/low
	// severity violation, clamped to [0, 100].
	Score int `json:"score"`

	// Violations lists every rule match in rule-table order, then text
	// order. Multiple rules firing on the same position are all reported.
	Violations []Violation `json:"violations"`

	// Phonemes is the classified character sequence of the text.
	Phonemes []Token `json:"phonemes"`

	// RulesChecked is the size of the rule table that was applied.
	RulesChecked int `json:"rules_checked"`
}

// Validator applies an ordered rule table to Arabic text.
// A Validator is read-only after construction and safe for concurrent use.
type Validator struct {
	rules []compiledRule
}

// compiledRule pairs a table entry with its character sets converted to rune
// lookups once, at construction.
type compiledRule struct {
	Rule
	trigger map[rune]bool
	follow  map[rune]bool
}

// NewValidator returns a Validator over the given rule table. Pass
// [DefaultRules] for the embedded table. Rule order is preserved.
func NewValidator(rules []Rule) *Validator {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		compiled[i] = compiledRule{
			Rule:    r,
			trigger: runeSet(r.Trigger),
			follow:  runeSet(r.FollowedBy),
		}
	}
	return &Validator{rules: compiled}
}

// runeSet converts single-character table entries to a rune lookup.
func runeSet(entries []string) map[rune]bool {
	set := make(map[rune]bool, len(entries))
	for _, s := range entries {
		for _, r := range s {
			set[r] = true
			break
		}
	}
	return set
}

// Validate scans text against every rule and returns the scored report.
//
// The text is matched literally, including any diacritics — stripping
// tashkeel is a text-hygiene step that belongs to the caller, since some
// rules key off the marks themselves.
func (v *Validator) Validate(text string) Report {
	report := Report{
		Score:        100,
		Phonemes:     Classify(text, SkipUnknown),
		RulesChecked: len(v.rules),
	}

	words := fields(text)
	for _, rule := range v.rules {
		for wordIdx, word := range words {
			var nextInitial rune
			if wordIdx+1 < len(words) {
				nextInitial = words[wordIdx+1][0]
			}
			report.Violations = append(report.Violations, checkWord(rule, wordIdx, word, nextInitial)...)
		}
	}

	for _, violation := range report.Violations {
		report.Score -= violation.Severity.Penalty()
	}
	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

// checkWord applies one rule to one word.
//
// With a trigger set, every character pair (c, next) is tested: c ∈ trigger
// and next ∈ followedBy fires the rule. The follower of the word-final
// character is the first character of the next word (nextInitial, 0 when
// this is the last word) — the classic Nun-Sakinah rules all pair across a
// word boundary, as the rule table's own examples show. Without a trigger
// set the rule instead fires when the word's final character is in
// followedBy (the Qalqalah/Waqf word-final form).
func checkWord(rule compiledRule, wordIdx int, word []rune, nextInitial rune) []Violation {
	var violations []Violation

	if len(rule.trigger) > 0 {
		for i := 0; i < len(word); i++ {
			c := word[i]
			var next rune
			if i+1 < len(word) {
				next = word[i+1]
			} else {
				next = nextInitial
			}
			if next == 0 || !rule.trigger[c] || !rule.follow[next] {
				continue
			}
			violations = append(violations, Violation{
				Rule:        rule.Name,
				Description: rule.Description,
				Example:     rule.Example,
				WordIndex:   wordIdx,
				CharIndex:   i,
				Severity:    rule.Severity,
				Audio:       rule.Audio,
				Message: fmt.Sprintf("Check Tajweed rule %s for '%s%s' in word '%s'",
					rule.Name, string(c), string(next), string(word)),
			})
		}
		return violations
	}

	if len(word) == 0 || len(rule.follow) == 0 {
		return nil
	}
	last := len(word) - 1
	if !rule.follow[word[last]] {
		return nil
	}
	return []Violation{{
		Rule:        rule.Name,
		Description: rule.Description,
		Example:     rule.Example,
		WordIndex:   wordIdx,
		CharIndex:   last,
		Severity:    rule.Severity,
		Audio:       rule.Audio,
		Message: fmt.Sprintf("Check Tajweed rule %s for '%s' at end of word '%s'",
			rule.Name, string(word[last]), string(word)),
	}}
}

// fields splits text into words on whitespace, as rune slices so that rule
// matching indexes characters rather than bytes.
func fields(text string) [][]rune {
	var words [][]rune
	var current []rune
	for _, c := range text {
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if len(current) > 0 {
				words = append(words, current)
				current = nil
			}
			continue
		}
		current = append(current, c)
	}
	if len(current) > 0 {
		words = append(words, current)
	}
	return words
}
