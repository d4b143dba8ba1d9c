package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/snapshot"
	"github.com/relware/relcomp/internal/verifier"
)

var (
	compareFrom   string
	compareTo     string
	compareVerify string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two registry snapshots",
	Long: `Compare the registry at two commits. Without --verify the structural
delta is printed. With --verify the transition is checked to be exactly
one legal release addition or component registration; on failure every
violated clause is reported together with a diff of the two snapshots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		before, err := ws.provider.Load(compareFrom)
		if err != nil {
			return err
		}
		after, err := ws.provider.Load(compareTo)
		if err != nil {
			return err
		}

		if compareVerify == "" {
			return printYAML(renderDelta(verifier.Compute(before, after)))
		}

		result, err := verifier.Verify(verifier.Mode(compareVerify), before, after)
		if err != nil {
			return err
		}
		if !result.Valid {
			fmt.Fprintf(os.Stderr, "the changes from %s to %s do not represent a valid %s:\n",
				compareFrom, compareTo, compareVerify)
			for _, reason := range result.Reasons {
				fmt.Fprintf(os.Stderr, "  - %s\n", reason)
			}
			beforeText, errB := snapshot.EncodeRegistry(before)
			afterText, errA := snapshot.EncodeRegistry(after)
			if errB == nil && errA == nil {
				fmt.Fprintf(os.Stderr, "changes found:\n%s", verifier.LineDiff(beforeText, afterText))
			}
			return fmt.Errorf("verification failed with %d problem(s)", len(result.Reasons))
		}

		d := verifier.Compute(before, after)
		switch verifier.Mode(compareVerify) {
		case verifier.ModeRelease:
			return printYAML(renderRelease(d.NewReleases[0]))
		case verifier.ModeRegistration:
			record, err := snapshot.ComponentRecord(after, d.AddedComponents[0].Name)
			if err != nil {
				return err
			}
			return printYAML(record)
		}
		return nil
	},
}

// deltaOutput is the YAML rendering of a snapshot delta.
type deltaOutput struct {
	AddedComponents     []string            `yaml:"added_components,omitempty"`
	RemovedComponents   []string            `yaml:"removed_components,omitempty"`
	ChangedComponents   []string            `yaml:"changed_components,omitempty"`
	NewReleases         []releaseOutput     `yaml:"new_releases,omitempty"`
	RemovedReleases     []releaseOutput     `yaml:"removed_releases,omitempty"`
	MutatedReleases     []releaseOutput     `yaml:"mutated_releases,omitempty"`
	ChangedDependencies []string            `yaml:"changed_dependencies,omitempty"`
	AddedRequirements   map[string][]string `yaml:"added_requirements,omitempty"`
	RemovedRequirements map[string][]string `yaml:"removed_requirements,omitempty"`
}

func renderDelta(d *verifier.Delta) deltaOutput {
	out := deltaOutput{
		ChangedComponents:   d.ChangedComponents,
		ChangedDependencies: d.ChangedDependencies,
	}
	for _, c := range d.AddedComponents {
		out.AddedComponents = append(out.AddedComponents, c.Name)
	}
	for _, c := range d.RemovedComponents {
		out.RemovedComponents = append(out.RemovedComponents, c.Name)
	}
	for _, r := range d.NewReleases {
		out.NewReleases = append(out.NewReleases, renderRelease(r))
	}
	for _, r := range d.RemovedReleases {
		out.RemovedReleases = append(out.RemovedReleases, renderRelease(r))
	}
	for _, r := range d.MutatedReleases {
		out.MutatedReleases = append(out.MutatedReleases, renderRelease(r))
	}
	for owner, reqs := range d.AddedRequirements {
		for _, req := range reqs {
			if out.AddedRequirements == nil {
				out.AddedRequirements = make(map[string][]string)
			}
			out.AddedRequirements[owner] = append(out.AddedRequirements[owner], req.Name)
		}
	}
	for owner, reqs := range d.RemovedRequirements {
		for _, req := range reqs {
			if out.RemovedRequirements == nil {
				out.RemovedRequirements = make(map[string][]string)
			}
			out.RemovedRequirements[owner] = append(out.RemovedRequirements[owner], req.Name)
		}
	}
	return out
}

func init() {
	compareCmd.Flags().StringVar(&compareFrom, "from", "", "git commitish of the older snapshot")
	_ = compareCmd.MarkFlagRequired("from")
	compareCmd.Flags().StringVar(&compareTo, "to", "", "git commitish of the newer snapshot")
	_ = compareCmd.MarkFlagRequired("to")
	compareCmd.Flags().StringVar(&compareVerify, "verify", "", "verification mode: release or registration")

	rootCmd.AddCommand(compareCmd)
}
