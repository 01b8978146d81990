// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves docsmith settings from viper (flags, environment,
// and config file) and validates them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/pkg/types"
)

// Keys shared by flags, environment variables, and the config file.
const (
	KeySource          = "source"
	KeyOutput          = "output"
	KeyInclude         = "include"
	KeyExclude         = "exclude"
	KeyIndexDir        = "index.dir"
	KeyIndexMaxResults = "index.max_results"
	KeyIndexDisabled   = "index.disabled"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyWatchDebounce   = "watch.debounce"
)

const (
	DefaultSource     = "."
	DefaultOutput     = "./dist"
	DefaultIndexDir   = ".docsmith"
	DefaultMaxResults = 20
	DefaultDebounce   = 500 * time.Millisecond
)

// DefaultInclude selects every Markdown file under the source directory.
var DefaultInclude = []string{"**/*.md"}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySource, DefaultSource)
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyInclude, DefaultInclude)
	v.SetDefault(KeyIndexDir, DefaultIndexDir)
	v.SetDefault(KeyIndexMaxResults, DefaultMaxResults)
	v.SetDefault(KeyLogLevel, zerolog.InfoLevel.String())
	v.SetDefault(KeyLogFormat, string(types.LogText))
	v.SetDefault(KeyWatchDebounce, DefaultDebounce)
}

// Load reads the project configuration from v. Missing values fall back to
// the package defaults even when SetDefaults was not called.
func Load(v *viper.Viper) types.ProjectConfig {
	cfg := types.ProjectConfig{
		Build: types.BuildConfig{
			SourceDir: stringOr(v, KeySource, DefaultSource),
			OutputDir: stringOr(v, KeyOutput, DefaultOutput),
			Include:   patterns(v.GetStringSlice(KeyInclude)),
			Exclude:   patterns(v.GetStringSlice(KeyExclude)),
		},
		Index: types.IndexConfig{
			Dir:        stringOr(v, KeyIndexDir, DefaultIndexDir),
			MaxResults: v.GetInt(KeyIndexMaxResults),
			Disabled:   v.GetBool(KeyIndexDisabled),
		},
		Log: types.LogConfig{
			Level:  stringOr(v, KeyLogLevel, zerolog.InfoLevel.String()),
			Format: types.LogFormat(stringOr(v, KeyLogFormat, string(types.LogText))),
		},
		Watch: types.WatchConfig{
			Debounce: v.GetDuration(KeyWatchDebounce),
		},
	}

	if len(cfg.Build.Include) == 0 {
		cfg.Build.Include = append([]string(nil), DefaultInclude...)
	}
	if cfg.Index.MaxResults <= 0 {
		cfg.Index.MaxResults = DefaultMaxResults
	}
	if !v.IsSet(KeyWatchDebounce) && cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	return cfg
}

func stringOr(v *viper.Viper, key, fallback string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return fallback
}

// patterns flattens comma-separated entries, which is how list values
// arrive from environment variables.
func patterns(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every invalid field at once.
func Validate(cfg types.ProjectConfig) error {
	return criterio.ValidateStruct(
		criterio.Run(KeySource, cfg.Build.SourceDir, isDirectory),
		validateOutput(cfg.Build),
		validatePatterns(KeyInclude, cfg.Build.Include),
		validatePatterns(KeyExclude, cfg.Build.Exclude),
		criterio.Run(KeyLogLevel, cfg.Log.Level, validLevel),
		criterio.Run(KeyLogFormat, string(cfg.Log.Format), validFormat),
		validateDebounce(cfg.Watch.Debounce),
	)
}

func isDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "cannot access")
	}
	if !info.IsDir() {
		return errors.Newf("%s is not a directory", path)
	}
	return nil
}

func validateOutput(cfg types.BuildConfig) error {
	if cfg.OutputDir == "" {
		return criterio.NewFieldErrors(KeyOutput, errors.New("is required"))
	}
	src, errSrc := filepath.Abs(cfg.SourceDir)
	out, errOut := filepath.Abs(cfg.OutputDir)
	if errSrc == nil && errOut == nil && src == out {
		return criterio.NewFieldErrors(KeyOutput, errors.New("must differ from the source directory"))
	}
	return nil
}

func validatePatterns(field string, pats []string) error {
	var errs criterio.FieldErrorsBuilder
	for i, p := range pats {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("%s[%d]", field, i), errors.Newf("invalid glob %q", p))
		}
	}
	return errs.ToError()
}

func validLevel(level string) error {
	if _, err := zerolog.ParseLevel(level); err != nil {
		return errors.Newf("unknown level %q", level)
	}
	return nil
}

func validFormat(format string) error {
	switch types.LogFormat(format) {
	case types.LogText, types.LogJSON:
		return nil
	}
	return errors.Newf("unsupported format %q: use text or json", format)
}

func validateDebounce(d time.Duration) error {
	if d < 0 {
		return criterio.NewFieldErrors(KeyWatchDebounce, errors.New("must not be negative"))
	}
	return nil
}
