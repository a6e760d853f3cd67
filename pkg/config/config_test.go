package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_LayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gekko.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm_provider: static
max_debate_rounds: 3
call_timeout: 45s
online_tools: false
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "static", s.LLMProvider)
	assert.Equal(t, 3, s.MaxDebateRounds)
	assert.Equal(t, 45*time.Second, s.CallTimeout)
	assert.False(t, s.OnlineTools)
	// untouched keys keep their defaults
	assert.Equal(t, 1, s.MaxRiskRounds)
	assert.Equal(t, 2, s.AnalysisDepth)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsBadRanges(t *testing.T) {
	s := Default()
	s.MaxDebateRounds = 0
	require.Error(t, s.Validate())

	s = Default()
	s.AnalysisDepth = 4
	require.Error(t, s.Validate())

	s = Default()
	s.LLMProvider = ""
	require.Error(t, s.Validate())
}

func TestClone_IsDeep(t *testing.T) {
	s := Default()
	c := s.Clone()

	s.MaxDebateRounds = 99
	s.CacheTTL["price"] = time.Minute

	assert.NotEqual(t, 99, c.MaxDebateRounds)
	assert.NotEqual(t, time.Minute, c.CacheTTL["price"])
}

func TestTTLFor(t *testing.T) {
	s := Default()
	assert.Equal(t, s.CacheTTL["news"], s.TTLFor("news"))
	assert.Equal(t, s.DefaultTTL, s.TTLFor("unknown-kind"))
}

func TestDump_RoundTrips(t *testing.T) {
	s := Default()
	s.DeepThinkModel = "my-model"

	out, err := s.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "deep_think_llm: my-model")
	assert.Contains(t, out, "max_debate_rounds: 2")
}
