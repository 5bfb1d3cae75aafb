package drupal

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eringen/routemanager/catalog"
)

const routingSuffix = ".routing.yml"

type routeDef struct {
	Path         string         `yaml:"path"`
	Requirements map[string]any `yaml:"requirements"`
	Options      map[string]any `yaml:"options"`
}

// SkipFunc is told about route files or entries that could not be used.
type SkipFunc func(file string, err error)

// ParseRouting decodes one routing file. Entries that are not route
// definitions (route_callbacks, malformed maps) are reported to skip and left
// out.
func ParseRouting(data []byte, file string, skip SkipFunc) ([]catalog.StaticRoute, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("drupal: parse %s: %w", file, err)
	}
	var out []catalog.StaticRoute
	for name, node := range doc {
		var def routeDef
		if err := node.Decode(&def); err != nil {
			if skip != nil {
				skip(file, fmt.Errorf("route %s: %w", name, err))
			}
			continue
		}
		if def.Path == "" {
			continue
		}
		r := catalog.StaticRoute{
			Name:         name,
			Path:         def.Path,
			Requirements: make(map[string]string, len(def.Requirements)),
			AdminRoute:   truthy(def.Options["_admin_route"]),
		}
		for k, v := range def.Requirements {
			r.Requirements[k] = scalar(v)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadRoutes walks dirs for *.routing.yml files and returns every declared
// route, sorted by name. A file that fails to parse is reported to skip and
// does not abort the walk; an unreadable directory does.
func LoadRoutes(dirs []string, skip SkipFunc) ([]catalog.StaticRoute, error) {
	var out []catalog.StaticRoute
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), routingSuffix) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if skip != nil {
					skip(path, err)
				}
				return nil
			}
			routes, err := ParseRouting(data, path, skip)
			if err != nil {
				if skip != nil {
					skip(path, err)
				}
				return nil
			}
			out = append(out, routes...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("drupal: walk %s: %w", dir, err)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// scalar renders a YAML requirement value as the string the CMS compares
// against. Non-scalar values become empty, which reads as "no requirement".
func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t)
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	case int:
		return t != 0
	}
	return false
}
