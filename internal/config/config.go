// Package config loads project configuration from .gao-dev/config.yaml,
// with DOCLIFE_* environment variables taking precedence over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ProjectDirName is the per-project metadata directory at the root of a
// doclife project.
const ProjectDirName = ".gao-dev"

// Config is the resolved project configuration. All relative paths are
// relative to the project root.
type Config struct {
	ProjectRoot      string `mapstructure:"-"`
	DocsRoot         string `mapstructure:"docs-root"`
	ArchiveDir       string `mapstructure:"archive-dir"`
	DBPath           string `mapstructure:"db"`
	Author           string `mapstructure:"author"`
	RetentionConfig  string `mapstructure:"retention-config"`
	GovernanceConfig string `mapstructure:"governance-config"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("docs-root", "docs")
	v.SetDefault("archive-dir", ".archive")
	v.SetDefault("db", filepath.Join(ProjectDirName, "documents.db"))
	v.SetDefault("author", os.Getenv("USER"))
	v.SetDefault("retention-config", filepath.Join(ProjectDirName, "retention.yaml"))
	v.SetDefault("governance-config", filepath.Join(ProjectDirName, "governance.yaml"))
}

// FindProjectRoot walks up from dir looking for a .gao-dev directory.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for ; ; dir = filepath.Dir(dir) {
		info, err := os.Stat(filepath.Join(dir, ProjectDirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("no %s directory found (run 'doclife init' first)", ProjectDirName)
		}
	}
}

// Load reads the project configuration for the given project root. A
// missing config.yaml yields pure defaults; a malformed one is an
// error. Environment variables like DOCLIFE_DOCS_ROOT override file
// values.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(filepath.Join(projectRoot, ProjectDirName, "config.yaml"))
	defaults(v)

	v.SetEnvPrefix("DOCLIFE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	return &cfg, nil
}

// Resolve turns a config-relative path into an absolute one.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectRoot, path)
}

// AbsDocsRoot is the absolute docs directory.
func (c *Config) AbsDocsRoot() string { return c.Resolve(c.DocsRoot) }

// AbsDBPath is the absolute registry database path.
func (c *Config) AbsDBPath() string { return c.Resolve(c.DBPath) }

const defaultConfigYAML = `# doclife project configuration
docs-root: docs
archive-dir: .archive
db: .gao-dev/documents.db
# author: your-name
`

const defaultRetentionYAML = `retention_policies:
  prd:
    active_to_obsolete: -1
    obsolete_to_archive: 180
    archive_retention: -1
    delete_after_archive: false
    compliance_tags: [product-decisions]
  architecture:
    obsolete_to_archive: 180
    delete_after_archive: false
  epic:
    obsolete_to_archive: 90
    archive_retention: 365
    delete_after_archive: true
  story:
    obsolete_to_archive: 90
    archive_retention: 365
    delete_after_archive: true
  adr:
    obsolete_to_archive: -1
    delete_after_archive: false
  postmortem:
    obsolete_to_archive: -1
    delete_after_archive: false
    compliance_tags: [incident-records]
  runbook:
    obsolete_to_archive: 30
    archive_retention: 180
    delete_after_archive: true
  qa_report:
    obsolete_to_archive: 30
    archive_retention: 90
    delete_after_archive: true
  test_report:
    obsolete_to_archive: 30
    archive_retention: 90
    delete_after_archive: true
`

const defaultGovernanceYAML = `ownership:
  prd:
    created_by: product-manager
    approved_by: product-lead
    reviewed_by: engineering-lead
    informed: [team]
  architecture:
    created_by: tech-lead
    approved_by: architect
    reviewed_by: engineering-lead
    informed: [team]
  runbook:
    created_by: sre
    approved_by: sre-lead
    reviewed_by: oncall
    informed: [sre]
review_cadence:
  prd: 90
  architecture: 90
  epic: 60
  story: 60
  adr: -1
  postmortem: -1
  runbook: 30
  qa_report: -1
  test_report: -1
permissions:
  can_archive: [admin, maintainer]
  can_delete: [admin]
priority_mapping:
  P0: 1
  P1: 2
  P2: 3
  P3: 4
  default: 5
`

// InitProject creates the .gao-dev directory with starter configuration
// files. Existing files are left untouched.
func InitProject(projectRoot string) error {
	dir := filepath.Join(projectRoot, ProjectDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	starters := map[string]string{
		"config.yaml":     defaultConfigYAML,
		"retention.yaml":  defaultRetentionYAML,
		"governance.yaml": defaultGovernanceYAML,
	}
	for name, content := range starters {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
