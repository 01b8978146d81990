// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/internal/builder"
	"github.com/pdiddy/docsmith/internal/config"
	"github.com/pdiddy/docsmith/internal/index"
	"github.com/pdiddy/docsmith/internal/logging"
	"github.com/pdiddy/docsmith/internal/watch"
	"github.com/pdiddy/docsmith/pkg/types"
)

var buildCmd = &cobra.Command{
	Use:   "build [source] [output]",
	Short: "Validate the sources and write the output tree",
	Long: `Build reads every Markdown document under source (default ".") matching
the include patterns, validates its front matter and title, and writes the
canonical documents plus manifest.yaml to output (default "./dist").

If any document fails, nothing is written and the command exits non-zero.
After a successful build the document index is updated unless --no-index
is given. With --watch, build keeps running and rebuilds on every change.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := projectConfig(cmd, args, map[string]string{
		config.KeyInclude:       "include",
		config.KeyExclude:       "exclude",
		config.KeyIndexDisabled: "no-index",
		config.KeyIndexDir:      "index-dir",
		config.KeyWatchDebounce: "debounce",
	})
	if err != nil {
		return err
	}

	opts := []builder.Option{builder.WithSkipDirs(cfg.Index.Dir)}
	if !cfg.Index.Disabled {
		store, err := index.NewStore(cfg.Index)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, builder.WithIndexer(store))
	}
	b := builder.New(cfg.Build, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	summary, err := b.Run(ctx, out)
	if err != nil {
		return err
	}

	watchMode, _ := cmd.Flags().GetBool("watch")
	if !watchMode {
		if summary.HasFailures() {
			return errors.Newf("%d document(s) failed", summary.Failed)
		}
		return nil
	}

	w, err := watch.New(watch.Config{
		BaseDir:  cfg.Build.SourceDir,
		Include:  cfg.Build.Include,
		Exclude:  cfg.Build.Exclude,
		SkipDirs: []string{cfg.Build.OutputDir, cfg.Index.Dir},
		Debounce: cfg.Watch.Debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			_, err := b.Run(ctx, out)
			return err
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

var checkCmd = &cobra.Command{
	Use:   "check [source]",
	Short: "Validate the sources without writing anything",
	Long: `Check parses every selected document and validates its front matter and
title exactly as build does, reporting each failure. Nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := projectConfig(cmd, args, map[string]string{
			config.KeyInclude: "include",
			config.KeyExclude: "exclude",
		})
		if err != nil {
			return err
		}

		b := builder.New(cfg.Build, builder.WithSkipDirs(cfg.Index.Dir))
		summary, err := b.Check(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return errors.Newf("%d document(s) failed", summary.Failed)
		}
		return nil
	},
}

// projectConfig binds flags and positional [source] [output] arguments,
// loads the configuration, and validates it.
func projectConfig(cmd *cobra.Command, args []string, flags map[string]string) (types.ProjectConfig, error) {
	if err := bindFlags(cmd, flags); err != nil {
		return types.ProjectConfig{}, err
	}
	if len(args) > 0 {
		viper.Set(config.KeySource, args[0])
	}
	if len(args) > 1 {
		viper.Set(config.KeyOutput, args[1])
	}

	cfg := config.Load(viper.GetViper())
	if err := config.Validate(cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	logging.Component("cli").Debug().
		Str("source", cfg.Build.SourceDir).
		Str("output", cfg.Build.OutputDir).
		Strs("include", cfg.Build.Include).
		Msg("configuration loaded")
	return cfg, nil
}

func init() {
	for _, c := range []*cobra.Command{buildCmd, checkCmd} {
		c.Flags().StringSlice("include", nil, `glob patterns selecting documents (default "**/*.md")`)
		c.Flags().StringSlice("exclude", nil, "glob patterns removed from the selection")
	}
	buildCmd.Flags().Bool("watch", false, "rebuild whenever a source changes")
	buildCmd.Flags().Bool("no-index", false, "do not update the document index")
	buildCmd.Flags().String("index-dir", "", `index directory (default ".docsmith")`)
	buildCmd.Flags().Duration("debounce", 0, "quiet period before a watch rebuild (default 500ms)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
}
