package policy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Policy text is colon-separated rule tokens. Each token is an integer
// period amount, one unit letter, and an integer copy count, e.g.
// "15m8:1h48:1d14:1w20" reads: 8 copies 15 minutes apart, 48 copies an
// hour apart, 14 a day apart, 20 a week apart.

type unit struct {
	suffix   string
	duration time.Duration
	name     string
}

var units = []unit{
	{"s", time.Second, "second"},
	{"m", time.Minute, "minute"},
	{"h", time.Hour, "hour"},
	{"d", 24 * time.Hour, "day"},
	{"w", 7 * 24 * time.Hour, "week"},
	{"y", 365 * 24 * time.Hour, "year"},
}

// ParseRule parses one rule token like "15m8".
func ParseRule(token string) (Rule, error) {
	for _, u := range units {
		amountText, keepText, ok := strings.Cut(token, u.suffix)
		if !ok {
			continue
		}

		amount, err := strconv.Atoi(amountText)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: cannot parse period before %q: %w", token, u.suffix, err)
		}
		keep, err := strconv.Atoi(keepText)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: cannot parse copies to keep after %q: %w", token, u.suffix, err)
		}

		rule := Rule{Period: time.Duration(amount) * u.duration, Keep: keep}
		if err := rule.Validate(); err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", token, err)
		}
		return rule, nil
	}

	return Rule{}, fmt.Errorf("rule %q: no valid time unit found (valid units: s|m|h|d|w|y)", token)
}

// ParsePolicy parses a full policy string. Empty input and unparsable
// tokens are rejected with a descriptive error, never defaulted.
func ParsePolicy(text string) (Policy, error) {
	if strings.TrimSpace(text) == "" {
		return Policy{}, errors.New("retention policy is empty: need at least one rule like \"1h24\"")
	}

	var rules []Rule
	for _, token := range strings.Split(text, ":") {
		rule, err := ParseRule(token)
		if err != nil {
			return Policy{}, fmt.Errorf("parsing retention policy %q: %w", text, err)
		}
		rules = append(rules, rule)
	}
	return New(rules...)
}

// String renders the rule in parseable form, folding the period into the
// largest unit that divides it evenly: Rule{15m, 8} -> "15m8".
func (r Rule) String() string {
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		if r.Period%u.duration == 0 && r.Period/u.duration > 0 {
			return fmt.Sprintf("%d%s%d", r.Period/u.duration, u.suffix, r.Keep)
		}
	}
	// not constructible through ParseRule, but don't crash formatting
	return fmt.Sprintf("%s?%d", r.Period, r.Keep)
}

// Describe renders the rule as prose for reports:
// "keep 8 snapshots spaced 15 minutes apart".
func (r Rule) Describe() string {
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		if r.Period%u.duration == 0 && r.Period/u.duration > 0 {
			amount := r.Period / u.duration
			name := u.name
			if amount != 1 {
				name += "s"
			}
			return fmt.Sprintf("keep %d snapshots spaced %d %s apart", r.Keep, amount, name)
		}
	}
	return fmt.Sprintf("keep %d snapshots spaced %s apart", r.Keep, r.Period)
}

// String renders the policy in parseable form: rules joined by colons,
// shortest period first. ParsePolicy(p.String()) reproduces p.
func (p Policy) String() string {
	tokens := make([]string, len(p.rules))
	for i, r := range p.rules {
		tokens[i] = r.String()
	}
	return strings.Join(tokens, ":")
}
