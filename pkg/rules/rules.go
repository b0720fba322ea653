package rules

import (
	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

// Rule selects audit events by service, action and target resource.
// All three filters must match for the rule to fire; EventNames is a
// set, any one of which satisfies the action filter. Matches are
// case-sensitive exact string comparisons.
type Rule struct {
	EventSource  string   `yaml:"eventSource" json:"eventSource"`
	EventNames   []string `yaml:"eventNames" json:"eventNames"`
	ResourceName string   `yaml:"resourceName" json:"resourceName"`
}

// Validate checks the rule is fully specified. Rules are loaded from
// configuration and validated once at startup; a partially specified
// rule would silently match nothing, so we reject it instead.
func (r Rule) Validate() error {
	if r.EventSource == "" {
		return errors.New("rule eventSource must not be empty")
	}
	if len(r.EventNames) == 0 {
		return errors.New("rule must list at least one event name")
	}
	for _, n := range r.EventNames {
		if n == "" {
			return errors.New("rule event names must not be empty")
		}
	}
	if r.ResourceName == "" {
		return errors.New("rule resourceName must not be empty")
	}
	return nil
}

// Matches reports whether the event satisfies all three of the
// rule's filters.
func (r Rule) Matches(e audit.Event) bool {
	if e.EventSource != r.EventSource {
		return false
	}
	nameMatched := false
	for _, n := range r.EventNames {
		if e.EventName == n {
			nameMatched = true
			break
		}
	}
	if !nameMatched {
		return false
	}
	resource, ok := e.ResourceName()
	if !ok {
		return false
	}
	return resource == r.ResourceName
}

// Matcher evaluates events against a fixed set of rules. It is a
// pure predicate: every event is evaluated, there is no sampling,
// and matching has no side effects.
type Matcher struct {
	rules []Rule
}

// NewMatcher validates the rules and returns a Matcher over them.
func NewMatcher(rr []Rule) (*Matcher, error) {
	if len(rr) == 0 {
		return nil, errors.New("at least one match rule is required")
	}
	for i, r := range rr {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
	}
	return &Matcher{rules: rr}, nil
}

// Match reports whether at least one configured rule fires for the
// event.
func (m *Matcher) Match(e audit.Event) bool {
	for _, r := range m.rules {
		if r.Matches(e) {
			return true
		}
	}
	return false
}

// Rules returns the configured rule set.
func (m *Matcher) Rules() []Rule {
	return m.rules
}
