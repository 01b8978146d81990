// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docsmith CLI.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/internal/config"
	"github.com/pdiddy/docsmith/internal/logging"
	"github.com/pdiddy/docsmith/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docsmith CLI.
var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Build a documentation site from Markdown with front matter",
	Long: `docsmith reads a tree of Markdown documents, each starting with a YAML
front matter block that carries its title. It validates every document,
rejects duplicate titles, and writes a canonical output tree with a
manifest. Successful builds are indexed for full-text search.

Use build to produce the output tree, check to validate without writing,
and index to query the most recent build.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return errors.Wrap(configErr, "reading config file")
		}
		if err := bindFlags(cmd, map[string]string{
			config.KeyLogLevel:  "log-level",
			config.KeyLogFormat: "log-format",
		}); err != nil {
			return err
		}
		cfg := config.Load(viper.GetViper())
		if err := logging.Setup(cfg.Log, os.Stderr); err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug().Str("file", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docsmith.yaml or ~/.config/docsmith/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", string(types.LogText), "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docsmith")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docsmith"))
		}
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("DOCSMITH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Only an explicitly named or malformed config file is an error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = err
		}
	}
}

// configErr holds the config file error found by initConfig, reported by
// the first command that runs.
var configErr error

// bindFlags binds the named flags of cmd to viper keys. Only flags the
// command actually defines are bound, so commands can share keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "binding --%s", name)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
