// Package cmd implements the relcomp command surface over the registry
// core: component registration, release addition, dependency management
// and snapshot verification.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/relware/relcomp/internal/config"
	"github.com/relware/relcomp/internal/gitexec"
	"github.com/relware/relcomp/internal/log"
	"github.com/relware/relcomp/internal/snapshot"
)

var (
	versionStr = "dev"
	cfgFile    string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "relcomp",
	Short: "Manage the component release registry",
	Long: `relcomp manages a git-backed registry of software components, their
immutable release histories and the version constraints between them.
Commands operate on snapshots of the registry at explicit commits; writes
are refused when the registry head moved since the snapshot was read.`,
	Version:       versionStr,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// SetVersion sets the version string shown by --version.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/relcomp/config.yaml)")
	rootCmd.PersistentFlags().String("releases-dir", "",
		"path to a local clone of the releases repo")
	rootCmd.PersistentFlags().String("releases-repo", config.DefaultReleasesRepo,
		"repository to clone when --releases-dir is not set")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("releases_dir", rootCmd.PersistentFlags().Lookup("releases-dir"))
	_ = viper.BindPFlag("releases_repo", rootCmd.PersistentFlags().Lookup("releases-repo"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("releases_repo", defaults.ReleasesRepo)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .relcomp/config.yaml (current directory)
		// 2. ~/.config/relcomp/config.yaml (user config)
		if _, err := os.Stat(".relcomp/config.yaml"); err == nil {
			viper.SetConfigFile(".relcomp/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "relcomp"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("relcomp")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug(log.CatConfig, "using config file", "path", viper.ConfigFileUsed())
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	log.SetDebug(cfg.Debug)
}

// workspace bundles the store-layer collaborators a command needs.
type workspace struct {
	git      gitexec.Executor
	provider *snapshot.GitProvider
	store    *snapshot.Store
}

// openWorkspace opens the configured releases clone, cloning it on first
// use when only a repo URL is configured.
func openWorkspace() (*workspace, error) {
	dir := cfg.ReleasesDir
	var git gitexec.Executor
	if dir != "" {
		git = gitexec.NewRealExecutor(dir)
		if !git.IsGitRepo() {
			return nil, fmt.Errorf("%s is not a git repository", dir)
		}
	} else {
		dir = config.StateDir()
		var err error
		git, err = snapshot.EnsureRepo(dir, cfg.ReleasesRepo)
		if err != nil {
			return nil, err
		}
	}
	return &workspace{
		git:      git,
		provider: snapshot.NewGitProvider(git),
		store:    snapshot.NewStore(git, dir),
	}, nil
}

// printYAML writes v to stdout as YAML, the output format of every
// command.
func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
