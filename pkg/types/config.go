package types

import "time"

// BuildConfig holds settings for the build pipeline.
type BuildConfig struct {
	// SourceDir is the directory scanned for Markdown documents.
	SourceDir string `json:"source" yaml:"source"`

	// OutputDir receives the canonical documents and manifest.yaml.
	OutputDir string `json:"output" yaml:"output"`

	// Include lists doublestar patterns, relative to SourceDir, selecting
	// documents (default "**/*.md").
	Include []string `json:"include" yaml:"include"`

	// Exclude lists doublestar patterns removed from the Include selection.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// IndexConfig holds settings for the document index.
type IndexConfig struct {
	// Dir holds docsmith.db and the index exports.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Disabled skips indexing after a build.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// LogFormat selects the log output encoding.
type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is text (console) or json.
	Format LogFormat `json:"format" yaml:"format"`
}

// WatchConfig holds settings for build --watch.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a rebuild.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// ProjectConfig groups all configuration sections.
type ProjectConfig struct {
	Build BuildConfig `json:"build" yaml:"build"`
	Index IndexConfig `json:"index" yaml:"index"`
	Log   LogConfig   `json:"log" yaml:"log"`
	Watch WatchConfig `json:"watch" yaml:"watch"`
}
