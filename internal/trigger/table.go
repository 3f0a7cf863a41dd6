package trigger

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// StripRule says how much text a matching rule removes.
type StripRule string

const (
	// StripPrefix removes only the matched phrase.
	StripPrefix StripRule = "prefix"
	// StripConnector also removes a connector word ("that", "this") and
	// trailing "," or ":" right after the phrase.
	StripConnector StripRule = "connector"
)

var connectorRe = regexp.MustCompile(`(?i)^\s*(?:(?:that|this)\b)?\s*[,:]?\s*`)

// Rule is one compiled entry of the trigger table.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Strip   StripRule
	// Address marks phrases that only name the assistant ("hey remy",
	// "@remy"). Their remainder is matched once against the followups.
	Address bool
}

// Table is an ordered list of rules. Order is precedence.
type Table struct {
	MinPayload int
	Rules      []Rule
	Followups  []Rule
}

type ruleSpec struct {
	Name    string    `yaml:"name"`
	Pattern string    `yaml:"pattern"`
	Strip   StripRule `yaml:"strip"`
	Address bool      `yaml:"address,omitempty"`
}

type tableSpec struct {
	MinPayload int        `yaml:"min_payload"`
	Rules      []ruleSpec `yaml:"rules"`
	Followups  []ruleSpec `yaml:"followups"`
}

// DefaultTable returns the built-in trigger table.
func DefaultTable() Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("trigger: built-in table: %v", err))
	}
	return t
}

// LoadTable reads a YAML trigger table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("trigger: read table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable compiles a YAML trigger table.
func ParseTable(data []byte) (Table, error) {
	var raw tableSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Table{}, fmt.Errorf("trigger: parse table: %w", err)
	}
	if len(raw.Rules) == 0 {
		return Table{}, fmt.Errorf("trigger: table has no rules")
	}

	t := Table{MinPayload: raw.MinPayload}
	if t.MinPayload <= 0 {
		t.MinPayload = DefaultMinPayload
	}
	var err error
	if t.Rules, err = compileRules(raw.Rules, true); err != nil {
		return Table{}, err
	}
	if t.Followups, err = compileRules(raw.Followups, false); err != nil {
		return Table{}, err
	}
	return t, nil
}

func compileRules(specs []ruleSpec, allowAddress bool) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("trigger: rule %d has no name", i)
		}
		if s.Strip == "" {
			s.Strip = StripPrefix
		}
		if s.Strip != StripPrefix && s.Strip != StripConnector {
			return nil, fmt.Errorf("trigger: rule %q: unknown strip %q", s.Name, s.Strip)
		}
		if s.Address && !allowAddress {
			return nil, fmt.Errorf("trigger: followup %q cannot be an address rule", s.Name)
		}
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("trigger: rule %q: %w", s.Name, err)
		}
		rules = append(rules, Rule{Name: s.Name, Pattern: re, Strip: s.Strip, Address: s.Address})
	}
	return rules, nil
}

// apply strips the rule's phrase from text if it matches at the start.
func (r Rule) apply(text string) (string, bool) {
	loc := r.Pattern.FindStringIndex(text)
	if loc == nil || loc[0] != 0 {
		return "", false
	}
	rest := text[loc[1]:]
	if r.Strip == StripConnector {
		rest = connectorRe.ReplaceAllString(rest, "")
	}
	return rest, true
}
