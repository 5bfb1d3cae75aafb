package catalog

// SettingsSeo is the SEO contribution of an explicit RouteSetting.
type SettingsSeo struct {
	Title       string
	Description string
	OGTitle     string
	OGImage     string
}

// EntitySeo is the SEO contribution inferred from content-entity defaults.
type EntitySeo struct {
	Title       bool
	Description bool
	OG          bool
}

// Badges are the four independent SEO presence indicators of a route.
type Badges struct {
	Title       bool
	Description bool
	H1          bool
	OpenGraph   bool
}

// SettingsSeoFor returns the SEO contribution of s, or nil when s is nil or
// carries no metatag at all.
func SettingsSeoFor(s *RouteSetting) *SettingsSeo {
	if s == nil || s.Metatags.IsZero() {
		return nil
	}
	return &SettingsSeo{
		Title:       s.Metatags.Title,
		Description: s.Metatags.Description,
		OGTitle:     s.Metatags.OGTitle,
		OGImage:     s.Metatags.OGImage,
	}
}

// AuditSeoFor returns the SEO payload of rec, or nil when there is no record
// or the crawler captured nothing.
func AuditSeoFor(rec *AuditRecord) *AuditSeo {
	if rec == nil || !rec.SEO.HasData() {
		return nil
	}
	return &rec.SEO
}

// MergeBadges ORs the three sources into one badge set; no source has
// priority over another. The second result is false when all three sources
// are absent, in which case the badge row is not shown at all.
func MergeBadges(set *SettingsSeo, aud *AuditSeo, ent *EntitySeo) (Badges, bool) {
	if set == nil && aud == nil && ent == nil {
		return Badges{}, false
	}
	var b Badges
	if set != nil {
		b.Title = set.Title != ""
		b.Description = set.Description != ""
		b.OpenGraph = set.OGTitle != "" || set.OGImage != ""
	}
	if aud != nil {
		b.Title = b.Title || aud.Title != ""
		b.Description = b.Description || aud.MetaDescription != ""
		b.H1 = hasNonEmpty(aud.H1)
		b.OpenGraph = b.OpenGraph || hasOGTag(aud.OG)
	}
	if ent != nil {
		b.Title = b.Title || ent.Title
		b.Description = b.Description || ent.Description
		b.OpenGraph = b.OpenGraph || ent.OG
	}
	return b, true
}

func hasNonEmpty(vals []string) bool {
	for _, v := range vals {
		if v != "" {
			return true
		}
	}
	return false
}

func hasOGTag(og map[string]string) bool {
	for _, v := range og {
		if v != "" {
			return true
		}
	}
	return false
}
