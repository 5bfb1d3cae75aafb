package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// OGDefaultKeys are the metatag default keys checked for Open Graph presence.
var OGDefaultKeys = []string{"og_title", "og_description", "og_image", "og_image_url"}

var nodePathRe = regexp.MustCompile(`^/node/(\d+)$`)

// MetatagDefaults is the entity-type-wide default metadata configuration.
type MetatagDefaults struct {
	Title       string
	Description string
	Tags        map[string]string
}

// HasOG reports whether any Open Graph default token is configured.
func (d MetatagDefaults) HasOG() bool {
	for _, k := range OGDefaultKeys {
		if strings.TrimSpace(d.Tags[k]) != "" {
			return true
		}
	}
	return false
}

// EntitySource reads content-entity configuration and content.
type EntitySource interface {
	// MetatagDefaults returns the node default metatags.
	MetatagDefaults(ctx context.Context) (MetatagDefaults, error)
	// NodesWithSummary returns the subset of ids whose body/summary field is
	// non-empty, in a single bulk query.
	NodesWithSummary(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// EntitySeoInspector infers default SEO badge presence for node-backed paths.
type EntitySeoInspector struct {
	src EntitySource
}

// NewEntitySeoInspector creates an inspector over src. A nil src yields an
// inspector that never reports entity data.
func NewEntitySeoInspector(src EntitySource) *EntitySeoInspector {
	return &EntitySeoInspector{src: src}
}

// NodeID extracts the node id of a system path such as "/node/42".
func NodeID(systemPath string) (int64, bool) {
	m := nodePathRe.FindStringSubmatch(systemPath)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Inspect returns entity-level SEO flags for every node-backed path in paths.
// aliases maps alias to system path; paths without an alias entry are used
// as-is. Paths that are not node-backed have no entry in the result.
func (i *EntitySeoInspector) Inspect(ctx context.Context, paths []string, aliases map[string]string) (map[string]EntitySeo, error) {
	out := make(map[string]EntitySeo)
	if i == nil || i.src == nil {
		return out, nil
	}

	nodeOf := make(map[string]int64)
	idSet := make(map[int64]struct{})
	for _, p := range paths {
		sys, ok := aliases[p]
		if !ok {
			sys = p
		}
		if id, ok := NodeID(sys); ok {
			nodeOf[p] = id
			idSet[id] = struct{}{}
		}
	}
	if len(nodeOf) == 0 {
		return out, nil
	}

	defaults, err := i.src.MetatagDefaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: metatag defaults: %w", err)
	}
	withSummary := map[int64]bool{}
	hasDescription := strings.TrimSpace(defaults.Description) != ""
	if hasDescription {
		ids := make([]int64, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		withSummary, err = i.src.NodesWithSummary(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("catalog: node summaries: %w", err)
		}
	}

	title := strings.TrimSpace(defaults.Title) != ""
	og := defaults.HasOG()
	for p, id := range nodeOf {
		out[p] = EntitySeo{
			Title:       title,
			Description: hasDescription && withSummary[id],
			OG:          og,
		}
	}
	return out, nil
}
