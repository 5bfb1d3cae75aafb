package audit

import "strings"

// HomepageCategory is the category of the site root.
const HomepageCategory = "homepage"

// SkipPrefixes are CMS system paths that are never audited.
var SkipPrefixes = []string{
	"/admin", "/core", "/modules", "/themes", "/sites/default/files",
	"/user", "/update.php", "/install.php", "/cron", "/batch",
	"/search", "/node/add", "/media/add",
}

// SkipExtensions are asset suffixes that are never audited.
var SkipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
	".pdf", ".doc", ".docx", ".xls", ".xlsx",
	".css", ".js", ".woff", ".woff2", ".ttf",
	".zip", ".gz", ".tar",
}

// Category derives a page category from the first path segment.
func Category(path string) string {
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s != "" {
			return s
		}
	}
	return HomepageCategory
}

// ShouldSkip reports whether path is a system or asset path.
func ShouldSkip(path string) bool {
	p := strings.ToLower(path)
	for _, prefix := range SkipPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for _, ext := range SkipExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
