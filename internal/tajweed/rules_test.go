package tajweed_test

import (
	"strings"
	"testing"

	"github.com/tartil-app/tartil/internal/tajweed"
)

func TestDefaultRules(t *testing.T) {
	t.Parallel()

	rules := tajweed.DefaultRules()
	if len(rules) != 9 {
		t.Fatalf("rule count = %d, want 9", len(rules))
	}
	if rules[0].Name != "Ghunnah" {
		t.Errorf("first rule = %q, want Ghunnah", rules[0].Name)
	}
	if rules[len(rules)-1].Name != "Waqf" {
		t.Errorf("last rule = %q, want Waqf", rules[len(rules)-1].Name)
	}
	for _, r := range rules {
		if !r.Severity.IsValid() {
			t.Errorf("rule %q has invalid severity %q", r.Name, r.Severity)
		}
	}
}

func TestLoadRules_RejectsInvalidSeverity(t *testing.T) {
	t.Parallel()

	const doc = `rules:
  - name: Broken
    description: bad severity
    trigger: []
    followed_by: []
    severity: catastrophic
`
	_, err := tajweed.LoadRules(strings.NewReader(doc))
	if err == nil {
		t.Fatal("LoadRules accepted an invalid severity")
	}
	if !strings.Contains(err.Error(), "Broken") {
		t.Errorf("error %q does not name the offending rule", err)
	}
}

func TestLoadRules_RejectsMissingName(t *testing.T) {
	t.Parallel()

	const doc = `rules:
  - description: nameless
    severity: low
`
	if _, err := tajweed.LoadRules(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadRules accepted a rule without a name")
	}
}

func TestLoadRules_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	const doc = `rules:
  - name: Ghunnah
    severity: high
    bonus_points: 5
`
	if _, err := tajweed.LoadRules(strings.NewReader(doc)); err == nil {
		t.Fatal("LoadRules accepted an unknown field")
	}
}

func TestSeverityPenalty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		severity tajweed.Severity
		want     int
	}{
		{tajweed.SeverityHigh, 10},
		{tajweed.SeverityMedium, 5},
		{tajweed.SeverityLow, 2},
	}
	for _, tc := range cases {
		if got := tc.severity.Penalty(); got != tc.want {
			t.Errorf("Penalty(%s) = %d, want %d", tc.severity, got, tc.want)
		}
	}
}
