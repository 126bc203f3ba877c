// Package governance assigns ownership, schedules reviews, and enforces
// role permissions from a RACI-style configuration.
package governance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gao-dev/doclife/internal/types"
)

// NeverReview disables the review cadence for a type.
const NeverReview = -1

// defaultPriorityKey ranks priorities absent from the mapping.
const defaultPriorityKey = "default"

// RACIRow is the ownership assignment for one document type.
type RACIRow struct {
	CreatedBy  string   `yaml:"created_by"`
	ApprovedBy string   `yaml:"approved_by"`
	ReviewedBy string   `yaml:"reviewed_by"`
	Informed   []string `yaml:"informed"`
}

// Config is the governance configuration. All four top-level keys are
// required.
type Config struct {
	Ownership       map[string]RACIRow  `yaml:"ownership"`
	ReviewCadence   map[string]int      `yaml:"review_cadence"`
	Permissions     map[string][]string `yaml:"permissions"`
	PriorityMapping map[string]int      `yaml:"priority_mapping"`
}

// LoadConfig reads and validates a governance configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read governance config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates governance configuration bytes.
// Missing top-level keys are fatal.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse governance config: %w", err)
	}

	missing := []string{}
	if cfg.Ownership == nil {
		missing = append(missing, "ownership")
	}
	if cfg.ReviewCadence == nil {
		missing = append(missing, "review_cadence")
	}
	if cfg.Permissions == nil {
		missing = append(missing, "permissions")
	}
	if cfg.PriorityMapping == nil {
		missing = append(missing, "priority_mapping")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("governance config is missing required keys: %v", missing)
	}

	for key := range cfg.Ownership {
		if !types.DocType(key).IsValid() {
			return nil, fmt.Errorf("governance config: unknown document type %q in ownership", key)
		}
	}
	for key := range cfg.ReviewCadence {
		if !types.DocType(key).IsValid() {
			return nil, fmt.Errorf("governance config: unknown document type %q in review_cadence", key)
		}
	}
	return &cfg, nil
}

// Cadence returns the review cadence in days for a type; NeverReview
// when unconfigured.
func (c *Config) Cadence(docType types.DocType) int {
	if days, ok := c.ReviewCadence[string(docType)]; ok {
		return days
	}
	return NeverReview
}

// RACI returns the ownership row for a type, if configured.
func (c *Config) RACI(docType types.DocType) (RACIRow, bool) {
	row, ok := c.Ownership[string(docType)]
	return row, ok
}

// PriorityRank maps a priority label to its sort rank; lower wins.
// Unknown labels get the "default" rank, or the lowest priority when no
// default is configured.
func (c *Config) PriorityRank(priority string) int {
	if rank, ok := c.PriorityMapping[priority]; ok {
		return rank
	}
	if rank, ok := c.PriorityMapping[defaultPriorityKey]; ok {
		return rank
	}
	return len(c.PriorityMapping) + 1
}

// HasPermission reports whether role is listed for the permission.
func (c *Config) HasPermission(permission, role string) bool {
	for _, r := range c.Permissions[permission] {
		if r == role {
			return true
		}
	}
	return false
}
