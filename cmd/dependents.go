package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/registry"
)

var dependentsName string

var dependentsCmd = &cobra.Command{
	Use:   "dependents",
	Short: "List components that directly depend on a component",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load("HEAD")
		if err != nil {
			return err
		}
		deps, err := registry.DependentsOf(reg, dependentsName)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(deps))
		for _, c := range deps {
			names = append(names, c.Name)
		}
		return printYAML(map[string][]string{"dependents": names})
	},
}

func init() {
	dependentsCmd.Flags().StringVar(&dependentsName, "name", "", "the component whose dependents to list")
	_ = dependentsCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(dependentsCmd)
}
