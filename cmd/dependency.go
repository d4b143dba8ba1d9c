package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/gitexec"
	"github.com/relware/relcomp/internal/log"
	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/resolver"
	"github.com/relware/relcomp/internal/snapshot"
	"github.com/relware/relcomp/internal/version"
)

var (
	dependencyName        string
	dependencyConstraints []string
	downloadDir           string
)

var dependencyCmd = &cobra.Command{
	Use:   "dependency",
	Short: "Declare dependencies and pin requirements",
}

var dependencySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Declare or replace a dependency constraint set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := version.ParseConstraints(dependencyConstraints); err != nil {
			return err
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		head, err := ws.store.Head()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load(head)
		if err != nil {
			return err
		}
		if _, ok := reg.Component(dependencyName); !ok {
			return fmt.Errorf("%w: %q", registry.ErrUnknownComponent, dependencyName)
		}
		record, err := snapshot.ComponentRecord(reg, componentName)
		if err != nil {
			return err
		}
		replaced := false
		for i, dep := range record.Dependencies {
			if dep.Name == dependencyName {
				record.Dependencies[i].Constraints = dependencyConstraints
				replaced = true
				break
			}
		}
		if !replaced {
			record.Dependencies = append(record.Dependencies, snapshot.DependencyRecord{
				Name:        dependencyName,
				Constraints: dependencyConstraints,
			})
		}
		path, err := ws.store.WriteComponentRecord(record)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Set %s dependency on %s", componentName, dependencyName)
		if err := ws.store.Commit(head, msg, path); err != nil {
			return err
		}
		return printYAML(record)
	},
}

var dependencyUpdateCmd = &cobra.Command{
	Use:   "update-requirements",
	Short: "Pin declared dependencies to concrete releases",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		head, err := ws.store.Head()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load(head)
		if err != nil {
			return err
		}
		reqs, err := resolver.Resolve(reg, componentName, ws.provider.BranchHead)
		if err != nil {
			return err
		}
		if requirementsEqual(reg.Requirements(componentName), reqs) {
			log.Info(log.CatResolve, "requirements unchanged", "component", componentName)
			return printYAML(renderRequirements(reqs))
		}
		path, err := ws.store.WriteRequirements(componentName, reqs)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Update %s dependency requirements", componentName)
		if err := ws.store.Commit(head, msg, path); err != nil {
			return err
		}
		return printYAML(renderRequirements(reqs))
	},
}

var dependencyDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Clone pinned requirements into a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load("HEAD")
		if err != nil {
			return err
		}
		if _, ok := reg.Component(componentName); !ok {
			return fmt.Errorf("%w: %q", registry.ErrUnknownComponent, componentName)
		}
		for _, req := range reg.Requirements(componentName) {
			dir := filepath.Join(downloadDir, req.Name)
			exec := gitexec.NewRealExecutor(dir)
			if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
				if err := gitexec.NewRealExecutor("").Clone(req.RepoURL, dir, ""); err != nil {
					return err
				}
			} else if err := exec.Fetch("origin"); err != nil {
				return err
			}
			if err := exec.Checkout(req.SHA); err != nil {
				return err
			}
			log.Info(log.CatGit, "downloaded requirement", "name", req.Name, "sha", req.SHA)
		}
		return nil
	},
}

// requirementOutput mirrors the requirements record for CLI output.
type requirementOutput struct {
	Name    string `yaml:"name"`
	Ref     string `yaml:"ref"`
	RefType string `yaml:"ref_type"`
	RepoURL string `yaml:"repo_url"`
	Sha     string `yaml:"sha"`
	Version string `yaml:"version,omitempty"`
}

func renderRequirements(reqs []registry.Requirement) map[string][]requirementOutput {
	out := make([]requirementOutput, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, requirementOutput{
			Name:    r.Name,
			Ref:     r.Ref,
			RefType: r.RefType,
			RepoURL: r.RepoURL,
			Sha:     r.SHA,
			Version: r.Version,
		})
	}
	return map[string][]requirementOutput{"dependencies": out}
}

func requirementsEqual(a, b []registry.Requirement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func init() {
	dependencyCmd.PersistentFlags().StringVar(&componentName, "component-name", "", "the dependent component name")
	_ = dependencyCmd.MarkPersistentFlagRequired("component-name")

	dependencySetCmd.Flags().StringVar(&dependencyName, "name", "", "the name of the dependency")
	_ = dependencySetCmd.MarkFlagRequired("name")
	dependencySetCmd.Flags().StringArrayVar(&dependencyConstraints, "constraint", nil,
		"a constraint expression, e.g. version<r2.0.0 or branch==master (repeatable)")

	dependencyDownloadCmd.Flags().StringVar(&downloadDir, "download-dir", "./", "directory to clone requirements into")

	dependencyCmd.AddCommand(dependencySetCmd, dependencyUpdateCmd, dependencyDownloadCmd)
	rootCmd.AddCommand(dependencyCmd)
}
