package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relware/relcomp/internal/log"
	"github.com/relware/relcomp/internal/registry"
	"github.com/relware/relcomp/internal/snapshot"
	"github.com/relware/relcomp/internal/version"
)

// appendRetries bounds the compare-and-swap retry loop for release
// addition.
const appendRetries = 3

var (
	releaseVersion string
	releaseSha     string
	releaseSeries  string
	releasePred    bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Query and append component releases",
}

// releaseOutput is the YAML rendering of one release.
type releaseOutput struct {
	Component   string `yaml:"component"`
	Series      string `yaml:"series"`
	Version     string `yaml:"version"`
	Sha         string `yaml:"sha"`
	Predecessor string `yaml:"predecessor,omitempty"`
}

func renderRelease(r registry.Release) releaseOutput {
	return releaseOutput{
		Component:   r.Component,
		Series:      r.Series,
		Version:     r.Version.String(),
		Sha:         r.SHA,
		Predecessor: r.Predecessor,
	}
}

var releaseGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a release, or its predecessor with --pred",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := version.Parse(releaseVersion)
		if err != nil {
			return err
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		reg, err := ws.provider.Load("HEAD")
		if err != nil {
			return err
		}
		if releasePred {
			pred, ok, err := reg.PredecessorOf(componentName, v)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("release %s of %s has no predecessor", v, componentName)
			}
			return printYAML(renderRelease(pred))
		}
		for _, r := range reg.Releases(componentName) {
			if version.Equal(r.Version, v) {
				return printYAML(renderRelease(r))
			}
		}
		if _, ok := reg.Component(componentName); !ok {
			return fmt.Errorf("%w: %q", registry.ErrUnknownComponent, componentName)
		}
		return fmt.Errorf("%w: %s has no release %s", registry.ErrUnknownVersion, componentName, v)
	},
}

var releaseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a release to a component series",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := version.Parse(releaseVersion)
		if err != nil {
			return err
		}
		if !registry.ValidSha(releaseSha) {
			return fmt.Errorf("%w: %q", registry.ErrMalformedSha, releaseSha)
		}
		ws, err := openWorkspace()
		if err != nil {
			return err
		}

		// Append is a compare-and-swap on the series latest: the candidate
		// is checked against an explicit snapshot and the commit is refused
		// when the head moved, in which case the whole derivation reruns
		// against the new head.
		var lastErr error
		for attempt := 0; attempt < appendRetries; attempt++ {
			head, err := ws.store.Head()
			if err != nil {
				return err
			}
			reg, err := ws.provider.Load(head)
			if err != nil {
				return err
			}
			candidate := registry.Release{
				Component: componentName,
				Series:    releaseSeries,
				Version:   v,
				SHA:       releaseSha,
			}
			after, err := reg.Appended(candidate)
			if err != nil {
				return err
			}
			path, err := ws.store.WriteComponent(after, componentName)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Add component %s release %s", componentName, v)
			if err := ws.store.Commit(head, msg, path); err != nil {
				if errors.Is(err, snapshot.ErrStaleSnapshot) {
					log.Warn(log.CatStore, "head moved during release add, retrying", "attempt", attempt+1)
					lastErr = err
					continue
				}
				return err
			}
			for _, r := range after.Releases(componentName) {
				if version.Equal(r.Version, v) && r.Series == releaseSeries {
					return printYAML(renderRelease(r))
				}
			}
			return nil
		}
		return lastErr
	},
}

func init() {
	releaseCmd.PersistentFlags().StringVar(&componentName, "component-name", "", "the component name")
	_ = releaseCmd.MarkPersistentFlagRequired("component-name")

	releaseGetCmd.Flags().StringVar(&releaseVersion, "version", "", "the release version, e.g. r1.0.0")
	_ = releaseGetCmd.MarkFlagRequired("version")
	releaseGetCmd.Flags().BoolVar(&releasePred, "pred", false, "show the predecessor of the version")

	releaseAddCmd.Flags().StringVar(&releaseVersion, "version", "", "the version for the new release, e.g. r1.0.0")
	_ = releaseAddCmd.MarkFlagRequired("version")
	releaseAddCmd.Flags().StringVar(&releaseSha, "sha", "", "the commit to be tagged with the version")
	_ = releaseAddCmd.MarkFlagRequired("sha")
	releaseAddCmd.Flags().StringVar(&releaseSeries, "series-name", "", "the series the release belongs to")
	_ = releaseAddCmd.MarkFlagRequired("series-name")

	releaseCmd.AddCommand(releaseGetCmd, releaseAddCmd)
	rootCmd.AddCommand(releaseCmd)
}
