// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docsmith/pkg/types"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestSetup_JSONComponent(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(types.LogConfig{Level: "debug", Format: types.LogJSON}, &buf))

	logger := Component("builder")
	logger.Debug().Str("path", "a.md").Msg("parsed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "builder", entry["cmp"])
	assert.Equal(t, "a.md", entry["path"])
	assert.Equal(t, "parsed", entry["message"])
	assert.Equal(t, "debug", entry["level"])
}

func TestSetup_LevelFilters(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(types.LogConfig{Level: "warn", Format: types.LogJSON}, &buf))

	logger := Component("index")
	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetup_TextFormat(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	require.NoError(t, Setup(types.LogConfig{}, &buf))

	logger := Component("watch")
	logger.Info().Msg("rebuilding")
	assert.Contains(t, buf.String(), "rebuilding")
	assert.Contains(t, buf.String(), "cmp=")
}

func TestSetup_Invalid(t *testing.T) {
	restoreGlobals(t)

	assert.Error(t, Setup(types.LogConfig{Level: "loud"}, nil))
	assert.Error(t, Setup(types.LogConfig{Format: "xml"}, nil))
}
