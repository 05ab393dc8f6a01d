package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/config"
	"github.com/agenthands/lila/internal/server"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lila dev")
}

func TestSeed_MemoryDefaults(t *testing.T) {
	t.Setenv("LILA_STORE", "")
	out, err := run(t, "seed", "--store", "memory", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 personas, 2 new relationships")
}

func TestSeed_FamilyFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "family.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"family_graph": {
		"nodes": [{"name": "Ana", "behavioral_style": "S"}, {"name": "Ben"}],
		"edges": [{"from": "Ana", "to": "Ben", "type": "intimate", "strength": 9}]}}`), 0o644))

	out, err := run(t, "seed", "--store", "memory", "--file", file, "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 personas, 1 new relationships")
}

func TestSeed_MissingFile(t *testing.T) {
	_, err := run(t, "seed", "--store", "memory", "--file", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LILA_STORE", "")
	t.Setenv("PORT", "")

	path := writeConfig(t, "[server]\nport = 9100\n[store]\nbackend = \"memory\"\n")
	cmd := NewRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", path))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, config.StoreMemory, cfg.Store.Backend)

	// An explicit path that does not exist is an error.
	cmd = NewRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.toml")))
	_, err = loadConfig(cmd)
	assert.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	cfg := config.Default().Engine
	cfg.CreateMissingRelationships = true
	cfg.DefaultTrust = 6
	cfg.DefaultRelationshipType = ""
	cfg.CommunityAlgorithm = "components"

	opts := engineOptions(cfg)
	assert.True(t, opts.CreateMissingRelationships)
	assert.Equal(t, 6.0, opts.DefaultRelationship.TrustLevel)
	assert.Equal(t, 5.0, opts.DefaultRelationship.IntimacyLevel)
	assert.Equal(t, "unknown", opts.DefaultRelationship.RelationshipType)
	assert.Equal(t, "components", opts.CommunityAlgorithm)
}

func TestServe_UnreachableGraphStoreStartsDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LILA_STORE", "")
	t.Setenv("NEO4J_URI", "bolt://127.0.0.1:1")

	cmd := NewRootCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config",
		writeConfig(t, "[store]\nbackend = \"neo4j\"\n[neo4j]\nmax_retry_seconds = 0\n")))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	a, err := newApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.store.Close(context.Background()) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, server.HealthPath, nil)
	a.httpServer(cfg, zap.NewNop()).SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var health server.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)

	for i, call := range []string{
		`{"name":"finalize_demo_session","arguments":{}}`,
		`{"name":"analyze_persona_compatibility","arguments":{"persona1_id":"lila","persona2_id":"don"}}`,
	} {
		msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":%s}`, i+1, call)
		raw, err := json.Marshal(a.mcp.HandleMessage(ctx, json.RawMessage(msg)))
		require.NoError(t, err)

		var resp struct {
			Result struct {
				IsError bool `json:"isError"`
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
		assert.True(t, resp.Result.IsError, string(raw))
		require.Len(t, resp.Result.Content, 1, string(raw))
		assert.JSONEq(t, `{"error":"graph store unavailable"}`, resp.Result.Content[0].Text)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
