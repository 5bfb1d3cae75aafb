package catalog

import (
	"strings"
)

const anonymousRole = "anonymous"

// NativeAdminOnly classifies a static route as admin-only from its declared
// requirements. It is a display heuristic, never used for enforcement, and
// treats missing or malformed requirement data as "not admin-only".
func NativeAdminOnly(r StaticRoute, anonPerms map[string]bool) bool {
	if r.AdminRoute || isTrue(r.Requirements["_admin_route"]) {
		return true
	}
	if isTrue(r.Requirements["_user_is_logged_in"]) {
		return true
	}
	if v, ok := r.Requirements["_access"]; ok && isFalse(v) {
		return true
	}
	if perm := strings.TrimSpace(r.Requirements["_permission"]); perm != "" {
		if !anonymousHasPermission(perm, anonPerms) {
			return true
		}
	}
	if strings.TrimSpace(r.Requirements["_entity_create_access"]) != "" {
		return true
	}
	if role := strings.TrimSpace(r.Requirements["_role"]); role != "" {
		if !containsRole(role, anonymousRole) {
			return true
		}
	}
	return false
}

// anonymousHasPermission applies the permission requirement semantics: "a+b"
// requires all listed permissions, "a,b" requires any of them.
// A requirement that lists no permission at all is treated as satisfied.
func anonymousHasPermission(req string, anonPerms map[string]bool) bool {
	if strings.Contains(req, "+") {
		for _, p := range splitTrim(req, "+") {
			if !anonPerms[p] {
				return false
			}
		}
		return true
	}
	perms := splitTrim(req, ",")
	if len(perms) == 0 {
		return true
	}
	for _, p := range perms {
		if anonPerms[p] {
			return true
		}
	}
	return false
}

func containsRole(req, role string) bool {
	sep := ","
	if strings.Contains(req, "+") {
		sep = "+"
	}
	for _, r := range splitTrim(req, sep) {
		if r == role {
			return true
		}
	}
	return false
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func isFalse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no":
		return true
	}
	return false
}
