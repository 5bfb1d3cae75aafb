// Package access decides whether a request path may be served to the current
// user and enforces that decision in front of every handler.
//
// The decision is an ordered list of rules evaluated first-match-wins:
// administrators always pass, an explicit per-path override comes next, and
// everything else inherits the site-wide default.
package access

import (
	"fmt"
	"strings"
)

// Override is the tri-state per-path access setting.
type Override int

const (
	// Inherit means no explicit override; the site default applies.
	Inherit Override = iota
	// Public marks the path as visible to anonymous users.
	Public
	// Hidden restricts the path to administrators.
	Hidden
)

// OverrideFromBool maps a public flag to Public or Hidden.
func OverrideFromBool(public bool) Override {
	if public {
		return Public
	}
	return Hidden
}

// ParseOverride parses the stored/CSV form: "1" public, "0" hidden, "" inherit.
func ParseOverride(s string) (Override, error) {
	switch strings.TrimSpace(s) {
	case "":
		return Inherit, nil
	case "1":
		return Public, nil
	case "0":
		return Hidden, nil
	}
	return Inherit, fmt.Errorf("invalid is_public value %q (want 0, 1 or empty)", s)
}

// String returns the stored/CSV form of o.
func (o Override) String() string {
	switch o {
	case Public:
		return "1"
	case Hidden:
		return "0"
	}
	return ""
}

// Policy is an immutable snapshot of the site-wide access configuration,
// taken once per request or batch.
type Policy struct {
	DefaultPublic bool
}

// DefaultPolicy is used when nothing has been configured yet.
var DefaultPolicy = Policy{DefaultPublic: true}

// Decision is the outcome of evaluating the rules for one request.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Input carries everything the rules look at. It is built by the Resolver
// but can be assembled directly to test the rule order without storage.
type Input struct {
	Path     string
	Admin    bool
	Override Override
	Policy   Policy
}

// Rule is one entry of the priority list.
type Rule struct {
	Name   string
	Match  func(Input) bool
	Decide func(Input) Decision
}

func always(d Decision) func(Input) Decision {
	return func(Input) Decision { return d }
}

// Rules is the enforcement priority list. Evaluation stops at the first match;
// the last rule matches everything, so evaluation always produces a decision.
var Rules = []Rule{
	{
		Name:   "administrator",
		Match:  func(in Input) bool { return in.Admin },
		Decide: always(Allow),
	},
	{
		Name:   "override-hidden",
		Match:  func(in Input) bool { return in.Override == Hidden },
		Decide: always(Deny),
	},
	{
		Name:   "override-public",
		Match:  func(in Input) bool { return in.Override == Public },
		Decide: always(Allow),
	},
	{
		Name:  "default",
		Match: func(Input) bool { return true },
		Decide: func(in Input) Decision {
			if in.Policy.DefaultPublic {
				return Allow
			}
			return Deny
		},
	},
}

// Evaluate runs Rules against in and returns the decision together with the
// name of the rule that produced it.
func Evaluate(in Input) (Decision, string) {
	for _, r := range Rules {
		if r.Match(in) {
			return r.Decide(in), r.Name
		}
	}
	return Deny, ""
}
