package kpi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetsFile is the YAML layout of the default targets:
//
//	default:
//	  minLeadToVisitRate: 30
//	projects:
//	  <projectId>:
//	    targets: {...}
//	    units:
//	      <unitId>: {...}
type TargetsFile struct {
	Default  *Targets                  `yaml:"default"`
	Projects map[string]ProjectTargets `yaml:"projects"`
}

// ProjectTargets holds a project's targets and per-unit overrides.
type ProjectTargets struct {
	Targets *Targets           `yaml:"targets"`
	Units   map[string]Targets `yaml:"units"`
}

// LoadTargetsFile reads a targets YAML file. An empty path yields an empty
// file.
func LoadTargetsFile(path string) (*TargetsFile, error) {
	if path == "" {
		return &TargetsFile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return ParseTargets(raw)
}

// ParseTargets decodes a targets YAML document.
func ParseTargets(raw []byte) (*TargetsFile, error) {
	var file TargetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// ForProject returns the project targets, falling back to the default, and
// the unit overrides.
func (f *TargetsFile) ForProject(projectID string) (*Targets, map[string]Targets) {
	if f == nil {
		return nil, nil
	}
	project, ok := f.Projects[projectID]
	if !ok {
		return f.Default, nil
	}
	targets := project.Targets
	if targets == nil {
		targets = f.Default
	}
	return targets, project.Units
}

func (f *TargetsFile) validate() error {
	check := func(scope string, t *Targets) error {
		if t == nil {
			return nil
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", scope, err)
		}
		return nil
	}
	if err := check("default", f.Default); err != nil {
		return err
	}
	for projectID, project := range f.Projects {
		if err := check("project "+projectID, project.Targets); err != nil {
			return err
		}
		for unitID, unit := range project.Units {
			if err := check("unit "+unitID, &unit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks that rates are percentages and nothing is negative.
func (t Targets) Validate() error {
	for name, rate := range map[string]int{
		"minLeadToVisitRate":     t.MinLeadToVisitRate,
		"minVisitToProposalRate": t.MinVisitToProposalRate,
	} {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if t.MinQualifiedLeads14d < 0 || t.MaxOfferGapPct < 0 || t.ExpectedDaysOnMarket < 0 {
		return fmt.Errorf("targets must not be negative")
	}
	return nil
}
