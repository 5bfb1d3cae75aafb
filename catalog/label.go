package catalog

import "github.com/eringen/routemanager/access"

// Label texts shown in the listing.
const (
	LabelAnonymous        = "Anonymous"
	LabelAdminOnly        = "Admin only"
	LabelAdminOnlyRoute   = "Admin only (route)"
	LabelAnonymousDefault = "Anonymous (default)"
	LabelAdminOnlyDefault = "Admin only (default)"
)

// Label is the display form of a route's effective access.
type Label struct {
	Text   string
	Public bool
	// Inherited is true when no explicit override produced the label.
	Inherited bool
}

type labelInput struct {
	override        access.Override
	nativeAdminOnly bool
	policy          access.Policy
}

type labelRule struct {
	match func(labelInput) bool
	label Label
}

// labelRules mirrors the enforcement order of access.Rules for overrides and
// the default, with one extra display-only rule for routes whose own
// requirements already restrict them. First match wins.
var labelRules = []labelRule{
	{
		match: func(in labelInput) bool { return in.override == access.Public },
		label: Label{Text: LabelAnonymous, Public: true},
	},
	{
		match: func(in labelInput) bool { return in.override == access.Hidden },
		label: Label{Text: LabelAdminOnly},
	},
	{
		match: func(in labelInput) bool { return in.nativeAdminOnly },
		label: Label{Text: LabelAdminOnlyRoute, Inherited: true},
	},
	{
		match: func(in labelInput) bool { return in.policy.DefaultPublic },
		label: Label{Text: LabelAnonymousDefault, Public: true, Inherited: true},
	},
	{
		match: func(labelInput) bool { return true },
		label: Label{Text: LabelAdminOnlyDefault, Inherited: true},
	},
}

// ResolveLabel computes the effective access label of a route.
func ResolveLabel(o access.Override, nativeAdminOnly bool, p access.Policy) Label {
	in := labelInput{override: o, nativeAdminOnly: nativeAdminOnly, policy: p}
	for _, r := range labelRules {
		if r.match(in) {
			return r.label
		}
	}
	return Label{Text: LabelAdminOnlyDefault, Inherited: true}
}

// Filter selects rows by effective access.
type Filter int

const (
	FilterAll Filter = iota
	FilterPublic
	FilterHidden
)

// ParseFilter maps the query-string form ("public", "hidden", anything else)
// to a Filter.
func ParseFilter(s string) Filter {
	switch s {
	case "public":
		return FilterPublic
	case "hidden":
		return FilterHidden
	}
	return FilterAll
}

func (f Filter) String() string {
	switch f {
	case FilterPublic:
		return "public"
	case FilterHidden:
		return "hidden"
	}
	return "all"
}

// Matches reports whether a row with label l passes the filter. The filter
// uses the same public/hidden outcome as the label, so a route labelled
// "Admin only (route)" is hidden for filtering purposes too.
func (f Filter) Matches(l Label) bool {
	switch f {
	case FilterPublic:
		return l.Public
	case FilterHidden:
		return !l.Public
	}
	return true
}
