package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/version"
)

// requirementsHeader is written at the top of every generated requirements
// record so nobody edits pins by hand.
const requirementsHeader = "# Do not modify by hand. This file is generated from the declared" +
	" dependencies and the constraints specified for them.\n"

// ComponentFile is the on-disk record of one component: identity,
// declared dependencies and the release log per series. Versions within a
// series are stored newest first.
type ComponentFile struct {
	Name         string             `yaml:"name"`
	RepoURL      string             `yaml:"repo_url"`
	IsProduct    bool               `yaml:"is_product"`
	Dependencies []DependencyRecord `yaml:"dependencies,omitempty"`
	Releases     []SeriesRecord     `yaml:"releases"`
}

// SeriesRecord is the release log of one series.
type SeriesRecord struct {
	Series   string          `yaml:"series"`
	Versions []VersionRecord `yaml:"versions"`
}

// VersionRecord is one release entry.
type VersionRecord struct {
	Version string `yaml:"version"`
	Sha     string `yaml:"sha"`
}

// DependencyRecord is one declared dependency with its constraint
// expressions.
type DependencyRecord struct {
	Name        string   `yaml:"name"`
	Constraints []string `yaml:"constraints"`
}

// RequirementsFile is the on-disk record of a component's resolved
// requirements.
type RequirementsFile struct {
	Dependencies []RequirementRecord `yaml:"dependencies"`
}

// RequirementRecord is one pinned requirement.
type RequirementRecord struct {
	Name    string `yaml:"name"`
	Ref     string `yaml:"ref"`
	RefType string `yaml:"ref_type"`
	RepoURL string `yaml:"repo_url"`
	Sha     string `yaml:"sha"`
	Version string `yaml:"version,omitempty"`
}

// DecodeComponent parses a component record.
func DecodeComponent(data []byte) (ComponentFile, error) {
	var cf ComponentFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return ComponentFile{}, fmt.Errorf("decode component record: %w", err)
	}
	if cf.Name == "" {
		return ComponentFile{}, fmt.Errorf("decode component record: missing name")
	}
	return cf, nil
}

// DecodeRequirements parses a requirements record.
func DecodeRequirements(data []byte) (RequirementsFile, error) {
	var rf RequirementsFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return RequirementsFile{}, fmt.Errorf("decode requirements record: %w", err)
	}
	return rf, nil
}

// addToBuilder feeds a decoded component record into a registry builder.
// Releases are stored newest first on disk but appended oldest first so
// creation order matches the chain.
func addToBuilder(b *registry.Builder, cf ComponentFile) error {
	if err := b.AddComponent(registry.Component{
		Name:      cf.Name,
		RepoURL:   cf.RepoURL,
		IsProduct: cf.IsProduct,
	}); err != nil {
		return err
	}
	for _, series := range cf.Releases {
		for i := len(series.Versions) - 1; i >= 0; i-- {
			vr := series.Versions[i]
			v, err := version.Parse(vr.Version)
			if err != nil {
				return fmt.Errorf("component %s series %s: %w", cf.Name, series.Series, err)
			}
			if err := b.AddRelease(registry.Release{
				Component: cf.Name,
				Series:    series.Series,
				Version:   v,
				SHA:       vr.Sha,
			}); err != nil {
				return err
			}
		}
	}
	for _, dep := range cf.Dependencies {
		cs, err := version.ParseConstraints(dep.Constraints)
		if err != nil {
			return fmt.Errorf("component %s dependency %s: %w", cf.Name, dep.Name, err)
		}
		if err := b.AddDependency(cf.Name, registry.Dependency{Target: dep.Name, Constraints: cs}); err != nil {
			return err
		}
	}
	return nil
}

// ComponentRecord builds the canonical component record for name from a
// snapshot.
func ComponentRecord(reg *registry.Registry, name string) (ComponentFile, error) {
	c, ok := reg.Component(name)
	if !ok {
		return ComponentFile{}, fmt.Errorf("%w: %q", registry.ErrUnknownComponent, name)
	}
	cf := ComponentFile{
		Name:      c.Name,
		RepoURL:   c.RepoURL,
		IsProduct: c.IsProduct,
		Releases:  []SeriesRecord{},
	}
	for _, d := range reg.Dependencies(name) {
		raws := make([]string, 0, len(d.Constraints))
		for _, con := range d.Constraints {
			raws = append(raws, con.String())
		}
		cf.Dependencies = append(cf.Dependencies, DependencyRecord{Name: d.Target, Constraints: raws})
	}
	for _, s := range reg.Series(name) {
		g, _ := reg.Graph(name, s)
		rels := g.Releases()
		sr := SeriesRecord{Series: s}
		for i := len(rels) - 1; i >= 0; i-- {
			sr.Versions = append(sr.Versions, VersionRecord{
				Version: rels[i].Version.String(),
				Sha:     rels[i].SHA,
			})
		}
		cf.Releases = append(cf.Releases, sr)
	}
	return cf, nil
}

// EncodeComponent renders the canonical component record for name from a
// snapshot.
func EncodeComponent(reg *registry.Registry, name string) ([]byte, error) {
	cf, err := ComponentRecord(reg, name)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(cf)
}

// EncodeRequirements renders the canonical requirements record, prefixed
// with the generated-file header.
func EncodeRequirements(reqs []registry.Requirement) ([]byte, error) {
	rf := RequirementsFile{Dependencies: make([]RequirementRecord, 0, len(reqs))}
	for _, r := range reqs {
		rf.Dependencies = append(rf.Dependencies, RequirementRecord{
			Name:    r.Name,
			Ref:     r.Ref,
			RefType: r.RefType,
			RepoURL: r.RepoURL,
			Sha:     r.SHA,
			Version: r.Version,
		})
	}
	data, err := yaml.Marshal(rf)
	if err != nil {
		return nil, err
	}
	return append([]byte(requirementsHeader), data...), nil
}

// EncodeRegistry renders every component record of a snapshot as one
// text, sorted by name. Used to show a readable diff between two
// snapshots.
func EncodeRegistry(reg *registry.Registry) (string, error) {
	var b strings.Builder
	comps := reg.Components()
	sort.Slice(comps, func(i, j int) bool { return comps[i].Name < comps[j].Name })
	for _, c := range comps {
		data, err := EncodeComponent(reg, c.Name)
		if err != nil {
			return "", err
		}
		b.WriteString("---\n")
		b.Write(data)
	}
	return b.String(), nil
}
