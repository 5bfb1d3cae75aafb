package drupal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eringen/routemanager/catalog"
)

const (
	anonymousRoleFile  = "user.role.anonymous.yml"
	nodeMetatagFile    = "metatag.metatag_defaults.node.yml"
	globalMetatagFile  = "metatag.metatag_defaults.global.yml"
	metatagTitleKey    = "title"
	metatagDescribeKey = "description"
)

type roleConfig struct {
	ID          string   `yaml:"id"`
	Permissions []string `yaml:"permissions"`
}

type metatagConfig struct {
	ID   string            `yaml:"id"`
	Tags map[string]string `yaml:"tags"`
}

// readYAML decodes path into v. A missing file leaves v untouched.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("drupal: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("drupal: parse %s: %w", path, err)
	}
	return nil
}

// AnonymousPermissions reads the anonymous role from the config sync
// directory. A missing role file grants nothing.
func AnonymousPermissions(configDir string) (map[string]bool, error) {
	var role roleConfig
	if err := readYAML(filepath.Join(configDir, anonymousRoleFile), &role); err != nil {
		return nil, err
	}
	perms := make(map[string]bool, len(role.Permissions))
	for _, p := range role.Permissions {
		perms[p] = true
	}
	return perms, nil
}

// NodeMetatagDefaults reads the node metatag defaults. Tags missing from the
// node file fall back to the global defaults, as the metatag module does.
func NodeMetatagDefaults(configDir string) (catalog.MetatagDefaults, error) {
	var global, node metatagConfig
	if err := readYAML(filepath.Join(configDir, globalMetatagFile), &global); err != nil {
		return catalog.MetatagDefaults{}, err
	}
	if err := readYAML(filepath.Join(configDir, nodeMetatagFile), &node); err != nil {
		return catalog.MetatagDefaults{}, err
	}

	tags := make(map[string]string, len(global.Tags)+len(node.Tags))
	for k, v := range global.Tags {
		tags[k] = v
	}
	for k, v := range node.Tags {
		tags[k] = v
	}
	return catalog.MetatagDefaults{
		Title:       tags[metatagTitleKey],
		Description: tags[metatagDescribeKey],
		Tags:        tags,
	}, nil
}
