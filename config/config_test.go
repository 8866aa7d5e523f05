package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colloquy.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Gateway.Provider)
	assert.Equal(t, "data/colloquy.db", cfg.Store.Path)
	assert.Equal(t, 15*time.Second, cfg.Tools.HandlerTimeout)
	assert.Equal(t, 30, cfg.Workflow.RelevanceThreshold)
	assert.Equal(t, 1, cfg.Debate.Rounds)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
gateway:
  provider: anthropic
  anthropic_api_key: sk-test
  default_model: claude-test
tools:
  sandbox_dir: /tmp/work
  handler_timeout: 30s
debate:
  rounds: 2
agents:
  - id: ba
    name: Business Analyst
    description: Financial analysis
    system_prompt: You analyze finances.
    model_id: gpt-test
    temperature: 0.3
  - id: ra
    name: Research Assistant
    description: Research support
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Gateway.Provider)
	assert.Equal(t, "claude-test", cfg.Gateway.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.Tools.HandlerTimeout)
	assert.Equal(t, 2, cfg.Debate.Rounds)

	assert.Len(t, cfg.Agents, 2)
	assert.Equal(t, "ba", cfg.Agents[0].ID)
	assert.Equal(t, "Business Analyst", cfg.Agents[0].Name)
	assert.Equal(t, "You analyze finances.", cfg.Agents[0].SystemPrompt)
	assert.Equal(t, 0.3, cfg.Agents[0].Temperature)
}

func TestLoad_ExpandsEnvInYAML(t *testing.T) {
	t.Setenv("TEST_COLLOQUY_KEY", "sk-from-env")
	path := writeConfig(t, `
gateway:
  provider: openai
  openai_api_key: ${TEST_COLLOQUY_KEY}
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Gateway.OpenAIAPIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COLLOQUY_PORT", "7070")
	t.Setenv("COLLOQUY_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Gateway.Provider)
	assert.Equal(t, "sk-env", cfg.Gateway.AnthropicAPIKey)
}

func TestLoad_AllowsMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
gateway:
  provider: openai
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Empty(t, cfg.Gateway.OpenAIAPIKey)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
gateway:
  provider: carrier-pigeon
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestLoad_RejectsDuplicateAgentIDs(t *testing.T) {
	path := writeConfig(t, `
agents:
  - id: ba
    name: One
  - id: ba
    name: Two
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, `duplicate agent id "ba"`)
}

func TestLoad_RejectsAgentWithoutID(t *testing.T) {
	path := writeConfig(t, `
agents:
  - name: Anonymous
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "missing id")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: map")
	_, err := Load(path)
	assert.Error(t, err)
}
