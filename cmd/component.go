package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/snapshot"
)

var (
	componentName    string
	componentRepoURL string
	componentProduct bool
	componentNewName string
)

var componentCmd = &cobra.Command{
	Use:   "component",
	Short: "Register and inspect components",
}

var componentGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a component record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load("HEAD")
		if err != nil {
			return err
		}
		record, err := snapshot.ComponentRecord(reg, componentName)
		if err != nil {
			return err
		}
		return printYAML(record)
	},
}

var componentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new component",
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
		if _, ok := reg.Component(componentName); ok {
			return fmt.Errorf("component %q already exists", componentName)
		}
		if !registry.ValidRepoURL(componentRepoURL) {
			return fmt.Errorf("repo_url %q is not a github https URL", componentRepoURL)
		}
		if _, err := ws.git.LsRemoteHead(componentRepoURL, ""); err != nil {
			return fmt.Errorf("repo_url %s is not reachable: %w", componentRepoURL, err)
		}
		record := snapshot.ComponentFile{
			Name:      componentName,
			RepoURL:   componentRepoURL,
			IsProduct: componentProduct,
			Releases:  []snapshot.SeriesRecord{},
		}
		path, err := ws.store.WriteComponentRecord(record)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Add component %s", componentName)
		if err := ws.store.Commit(head, msg, path); err != nil {
			return err
		}
		return printYAML(record)
	},
}

var componentUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a component's name or repository URL",
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
		record, err := snapshot.ComponentRecord(reg, componentName)
		if err != nil {
			return err
		}
		changed := false
		var paths []string
		if componentNewName != "" && componentNewName != record.Name {
			removed, err := ws.store.RemoveComponent(record.Name)
			if err != nil {
				return err
			}
			paths = append(paths, removed)
			record.Name = componentNewName
			changed = true
		}
		if componentRepoURL != "" && componentRepoURL != record.RepoURL {
			record.RepoURL = componentRepoURL
			changed = true
		}
		if cmd.Flags().Changed("is-product") && componentProduct != record.IsProduct {
			record.IsProduct = componentProduct
			changed = true
		}
		if !changed {
			return printYAML(record)
		}
		path, err := ws.store.WriteComponentRecord(record)
		if err != nil {
			return err
		}
		paths = append(paths, path)
		msg := fmt.Sprintf("Update component %s", record.Name)
		if err := ws.store.Commit(head, msg, paths...); err != nil {
			return err
		}
		return printYAML(record)
	},
}

func init() {
	componentCmd.PersistentFlags().StringVar(&componentName, "component-name", "", "the component name")
	_ = componentCmd.MarkPersistentFlagRequired("component-name")

	componentAddCmd.Flags().StringVar(&componentRepoURL, "repo-url", "", "component repository URL")
	_ = componentAddCmd.MarkFlagRequired("repo-url")
	componentAddCmd.Flags().BoolVar(&componentProduct, "is-product", false, "mark the component as a product")

	componentUpdateCmd.Flags().StringVar(&componentRepoURL, "repo-url", "", "component repository URL")
	componentUpdateCmd.Flags().BoolVar(&componentProduct, "is-product", false, "mark the component as a product")
	componentUpdateCmd.Flags().StringVar(&componentNewName, "new-name", "", "rename the component")

	componentCmd.AddCommand(componentGetCmd, componentAddCmd, componentUpdateCmd)
	rootCmd.AddCommand(componentCmd)
}
