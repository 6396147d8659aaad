package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sonesuke/docgraph-sub000/internal/output"
)

const useCases = `<a id="UC_001"></a>
# Login

Users log in. See [password check](requirements.md#FR_001).
`

const requirements = `<a id="FR_001"></a>
## Password check

Implemented by [auth](#MOD_001).

<a id="FR_002"></a>
## Session timeout

<a id="MOD_001"></a>
## Auth module
`

func setupDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usecases.md"), []byte(useCases), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.md"), []byte(requirements), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docgraph.toml"), []byte(`
[node_types.FR]
desc = "Functional requirement"
`), 0o600))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd("1.2.3")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

// --- query ---

func TestQuery_Table(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "query", `MATCH (u:UC)-[*1..2]->(m:MOD) RETURN u.id, m.name`, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "u.id")
	assert.Contains(t, out, "m.name")
	assert.Contains(t, out, "UC_001")
	assert.Contains(t, out, "Auth module")
}

func TestQuery_NoResults(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "query", `MATCH (n:ADR) RETURN n.id`, dir)
	require.NoError(t, err)
	assert.Equal(t, output.NoResults+"\n", out)
}

func TestQuery_JSON(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "query", `MATCH (n:FR) RETURN n.id, n.name`, dir, "--format", "json")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []map[string]string{
		{"n.id": "FR_001", "n.name": "Password check"},
		{"n.id": "FR_002", "n.name": "Session timeout"},
	}, got)
}

func TestQuery_YAML(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "query", `MATCH (n:FR) WHERE n.id = "FR_002" RETURN n.id`, dir, "-f", "yaml")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, []map[string]string{{"n.id": "FR_002"}}, got)
}

func TestQuery_ParseError(t *testing.T) {
	dir := setupDocs(t)
	_, err := execute(t, "query", `MATCH (n:FR RETURN n`, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error: line 1:")
	assert.Contains(t, err.Error(), "^")

	_, err = execute(t, "query", `MATCH (n:FR)`, dir)
	require.Error(t, err)
	assert.Equal(t, "Missing RETURN clause", err.Error())
}

func TestQuery_BadPath(t *testing.T) {
	_, err := execute(t, "query", `MATCH (n) RETURN n.id`, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestQuery_BadFormat(t *testing.T) {
	dir := setupDocs(t)
	_, err := execute(t, "query", `MATCH (n) RETURN n.id`, dir, "--format", "xml")
	assert.Error(t, err)
}

// --- cache ---

func TestQuery_CacheFile(t *testing.T) {
	dir := setupDocs(t)
	cache := filepath.Join(dir, ".docgraph", "cache.db")

	_, err := execute(t, "query", `MATCH (n) RETURN n.id`, dir, "--no-cache")
	require.NoError(t, err)
	assert.NoFileExists(t, cache)

	_, err = execute(t, "query", `MATCH (n) RETURN n.id`, dir)
	require.NoError(t, err)
	assert.FileExists(t, cache)

	// Second run reads from the cache and must agree with a fresh parse.
	cached, err := execute(t, "query", `MATCH (n) RETURN n.id, n.line`, dir, "-f", "json")
	require.NoError(t, err)
	fresh, err := execute(t, "query", `MATCH (n) RETURN n.id, n.line`, dir, "-f", "json", "--no-cache")
	require.NoError(t, err)
	assert.JSONEq(t, fresh, cached)
}

// --- list / show ---

func TestList(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "list", dir, "--prefix", "FR", "--format", "json")
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "FR_001", got[0]["id"])
	assert.Equal(t, "requirements.md:1", got[0]["location"])
	assert.Equal(t, "FR_002", got[1]["id"])
}

func TestShow(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "show", "FR_001", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "FR_001")
	assert.Contains(t, out, "Functional requirement")
	assert.Contains(t, out, "Password check")
	assert.Contains(t, out, "MOD_001")
	assert.Contains(t, out, "UC_001")

	out, err = execute(t, "show", "MOD_001", dir, "--json")
	require.NoError(t, err)
	var d struct {
		Incoming []string `json:"incoming"`
		Outgoing []string `json:"outgoing"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, []string{"FR_001"}, d.Incoming)
	assert.Empty(t, d.Outgoing)

	_, err = execute(t, "show", "FR_999", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FR_999")
}

// --- check ---

func TestCheck(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "check", dir)
	require.NoError(t, err)
	assert.Equal(t, output.NoResults+"\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docgraph.toml"), []byte(`
[graph]
strict_node_types = true

[node_types.FR]
desc = "Functional requirement"
`), 0o600))
	out, err = execute(t, "check", dir, "--no-cache", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, "2 problem(s) found", err.Error())

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "DG005", rows[0]["code"])
	assert.Equal(t, "MOD_001", rows[0]["id"])
	assert.Equal(t, "UC_001", rows[1]["id"])
	assert.Equal(t, "usecases.md:1", rows[1]["location"])
}

// --- config / version ---

func TestConfigShow(t *testing.T) {
	dir := setupDocs(t)
	out, err := execute(t, "config", "show", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "# Configuration file: "+filepath.Join(dir, "docgraph.toml"))
	assert.Contains(t, out, "Functional requirement")
	assert.Contains(t, out, "[cache]")

	out, err = execute(t, "config", "show", t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# No configuration file found"))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "docgraph 1.2.3 "), out)
}
