// Package retention decides when documents move to archive and when
// archived documents are deleted, driven by per-type policies. The
// compliance-tag hold is absolute: a protected document is never
// deleted, whatever the rest of its policy says.
package retention

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gao-dev/doclife/internal/types"
)

// Unlimited disables a day-count threshold.
const Unlimited = -1

// Policy is the retention configuration for one document type. Day
// counts of Unlimited (-1) disable the corresponding action.
type Policy struct {
	ActiveToObsolete   int      `yaml:"active_to_obsolete"`
	ObsoleteToArchive  int      `yaml:"obsolete_to_archive"`
	ArchiveRetention   int      `yaml:"archive_retention"`
	DeleteAfterArchive bool     `yaml:"delete_after_archive"`
	ComplianceTags     []string `yaml:"compliance_tags"`
}

// rawPolicy distinguishes "absent" from "zero" during decoding.
type rawPolicy struct {
	ActiveToObsolete   *int     `yaml:"active_to_obsolete"`
	ObsoleteToArchive  *int     `yaml:"obsolete_to_archive"`
	ArchiveRetention   *int     `yaml:"archive_retention"`
	DeleteAfterArchive *bool    `yaml:"delete_after_archive"`
	ComplianceTags     []string `yaml:"compliance_tags"`
}

func (r rawPolicy) toPolicy() Policy {
	p := Policy{
		ActiveToObsolete:  Unlimited,
		ObsoleteToArchive: Unlimited,
		ArchiveRetention:  Unlimited,
		ComplianceTags:    []string{},
	}
	if r.ActiveToObsolete != nil {
		p.ActiveToObsolete = *r.ActiveToObsolete
	}
	if r.ObsoleteToArchive != nil {
		p.ObsoleteToArchive = *r.ObsoleteToArchive
	}
	if r.ArchiveRetention != nil {
		p.ArchiveRetention = *r.ArchiveRetention
	}
	if r.DeleteAfterArchive != nil {
		p.DeleteAfterArchive = *r.DeleteAfterArchive
	}
	if r.ComplianceTags != nil {
		p.ComplianceTags = r.ComplianceTags
	}
	return p
}

// policyFile is the on-disk shape: a retention_policies mapping keyed by
// document type.
type policyFile struct {
	RetentionPolicies map[string]rawPolicy `yaml:"retention_policies"`
}

// LoadPolicies reads a retention policy file. A missing
// retention_policies key, an unreadable file, or an unknown document
// type key is fatal.
func LoadPolicies(path string) (map[types.DocType]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read retention config: %w", err)
	}
	return ParsePolicies(data)
}

// ParsePolicies decodes and validates retention configuration bytes.
func ParsePolicies(data []byte) (map[types.DocType]Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse retention config: %w", err)
	}
	if file.RetentionPolicies == nil {
		return nil, fmt.Errorf("retention config is missing the retention_policies key")
	}

	policies := make(map[types.DocType]Policy, len(file.RetentionPolicies))
	for key, raw := range file.RetentionPolicies {
		docType := types.DocType(key)
		if !docType.IsValid() {
			return nil, fmt.Errorf("retention config: unknown document type %q", key)
		}
		policies[docType] = raw.toPolicy()
	}
	return policies, nil
}
