package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/registry"
)

var verifyCommit string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the full invariant sweep over a registry snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load(verifyCommit)
		if err != nil {
			return err
		}
		violations := registry.Validate(reg)
		if len(violations) == 0 {
			return printYAML(map[string]string{"result": "valid"})
		}
		for _, v := range violations {
			fmt.Fprintf(os.Stderr, "  - %s\n", v.Error())
		}
		return fmt.Errorf("registry is invalid: %d violation(s)", len(violations))
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCommit, "commit", "HEAD", "git commitish of the snapshot to verify")
	rootCmd.AddCommand(verifyCmd)
}
