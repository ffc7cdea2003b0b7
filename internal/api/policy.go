package api

import (
	"fmt"
	"path/filepath"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
)

// Policy builds the license ladder from `license.tiers`.
func Policy(cfg config.License) (*license.Policy, error) {
	levels := make([]license.Level, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		levels = append(levels, license.Level{
			Code: license.Tier(t.Code),
			Name: t.Name,
			Limits: license.Limits{
				Count:      t.Limits.Count,
				Variations: t.Limits.Variations,
				Domains:    t.Limits.Domains,
				Sites:      t.Limits.Sites,
				Options:    t.Limits.Options,
			},
		})
	}
	p, err := license.NewPolicy(levels)
	if err != nil {
		return nil, fmt.Errorf("license tiers: %w", err)
	}
	return p, nil
}

// Schema loads `registrar.schema_file` (relative to the root) or returns
// the embedded schema.
func Schema(cfg *config.Config) (*fields.Schema, error) {
	path := cfg.Registrar.SchemaFile
	if path == "" {
		return fields.Default(), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Paths.Root, path)
	}
	return fields.LoadSchema(path)
}
