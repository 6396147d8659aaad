package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[graph]
ignore = ["drafts", "**/archive/*.md"]
strict_node_types = true
doc_types = ["ADR"]

[node_types.UC]
desc = "Use case"

[node_types.FR]
desc = "Functional requirement"

[references.FR]
rules = [
  { dir = "from", targets = ["UC"], min = 1, desc = "Every FR traces to a use case" },
  { dir = "to", targets = ["MOD"], max = 3 },
]

[log]
level = "debug"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoFile_UsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, dir, cfg.Root)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(dir, ".docgraph", "cache.db"), cfg.Cache.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Graph.Ignore)
	assert.False(t, cfg.Graph.StrictNodeTypes)
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, []string{"drafts", "**/archive/*.md"}, cfg.Graph.Ignore)
	assert.True(t, cfg.Graph.StrictNodeTypes)
	assert.Equal(t, []string{"ADR"}, cfg.Graph.DocTypes)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.Contains(t, cfg.NodeTypes, "UC", "node type keys keep their case")
	assert.Equal(t, "Use case", cfg.NodeTypes["UC"].Desc)

	rules := cfg.References["FR"].Rules
	require.Len(t, rules, 2)
	assert.Equal(t, "from", rules[0].Dir)
	assert.Equal(t, []string{"UC"}, rules[0].Targets)
	require.NotNil(t, rules[0].Min)
	assert.Equal(t, 1, *rules[0].Min)
	assert.Nil(t, rules[0].Max)
	require.NotNil(t, rules[1].Max)
	assert.Equal(t, 3, *rules[1].Max)
}

func TestLoad_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[log]\nlevel = \"warn\"\n")
	nested := filepath.Join(root, "docs", "specs")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Load(nested)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, filepath.Join(root, ".docgraph", "cache.db"), cfg.Cache.Path)
}

func TestLoad_FileTarget(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[log]\nformat = \"json\"\n")
	doc := filepath.Join(root, "spec.md")
	require.NoError(t, os.WriteFile(doc, []byte("# spec\n"), 0o600))

	cfg, err := Load(doc)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RelativeCachePath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[cache]\npath = \"tmp/graph.db\"\nenabled = false\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(dir, "tmp", "graph.db"), cfg.Cache.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[log]\nlevel = \"debug\"\n")
	t.Setenv("DOCGRAPH_LOG_LEVEL", "error")
	t.Setenv("DOCGRAPH_CACHE_ENABLED", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "invalid toml content [[")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidRules(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[references.FR]
rules = [
  { dir = "sideways", targets = [] },
  { dir = "to", targets = ["UC"], min = 4, max = 2 },
]
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var ves ValidationErrors
	require.ErrorAs(t, err, &ves)
	require.Len(t, ves, 3)
	assert.Equal(t, "references.FR.rules[0].dir", ves[0].Field)
	assert.Equal(t, "references.FR.rules[0].targets", ves[1].Field)
	assert.Equal(t, "references.FR.rules[1]", ves[2].Field)
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := Default(t.TempDir())
	require.NoError(t, Validate(cfg))

	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "log.format")
}

func TestEncode_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, sampleConfig)
	cfg, err := Load(dir)
	require.NoError(t, err)

	data, err := Encode(cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, toml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Graph, decoded.Graph)
	assert.Equal(t, cfg.NodeTypes, decoded.NodeTypes)
	assert.Equal(t, cfg.References, decoded.References)
	assert.Equal(t, cfg.Log, decoded.Log)
}
