package catalog

import (
	"sort"
	"strings"
)

// FrontGroup is the group key of the site root path "/".
const FrontGroup = "<front>"

// Group is the first level of the listing tree, keyed by first path segment.
type Group struct {
	Key       string
	Subgroups []Subgroup
}

// Subgroup is the second level, keyed by second path segment ("" when the
// path has a single segment).
type Subgroup struct {
	Key  string
	Rows []RouteRow
}

// Count returns the number of rows in g.
func (g Group) Count() int {
	n := 0
	for _, sg := range g.Subgroups {
		n += len(sg.Rows)
	}
	return n
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GroupKeys returns the group and subgroup keys of path and its depth below
// the subgroup prefix.
func GroupKeys(path string) (group, subgroup string, depth int) {
	segs := segments(path)
	switch len(segs) {
	case 0:
		return FrontGroup, "", 0
	case 1:
		return segs[0], "", 0
	}
	return segs[0], segs[1], len(segs) - 2
}

// GroupRows partitions rows into the two-level tree. Groups, subgroups and
// rows within a subgroup are sorted lexicographically.
func GroupRows(rows []RouteRow) []Group {
	tree := make(map[string]map[string][]RouteRow)
	for _, r := range rows {
		sub, ok := tree[r.Group]
		if !ok {
			sub = make(map[string][]RouteRow)
			tree[r.Group] = sub
		}
		sub[r.Subgroup] = append(sub[r.Subgroup], r)
	}

	groups := make([]Group, 0, len(tree))
	for gk, subs := range tree {
		g := Group{Key: gk, Subgroups: make([]Subgroup, 0, len(subs))}
		for sk, rs := range subs {
			sort.Slice(rs, func(i, j int) bool { return rs[i].Path < rs[j].Path })
			g.Subgroups = append(g.Subgroups, Subgroup{Key: sk, Rows: rs})
		}
		sort.Slice(g.Subgroups, func(i, j int) bool { return g.Subgroups[i].Key < g.Subgroups[j].Key })
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}
