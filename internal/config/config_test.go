package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.HealthPort)
	assert.True(t, cfg.Transports.HTTP.Enabled)
	assert.Equal(t, "gemini", cfg.LLM.Backend)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "/api/price/all/", cfg.Backend.PricePath)
	assert.Equal(t, "Varanasi", cfg.Advisory.DefaultCity)
	assert.InDelta(t, 6.5, cfg.Advisory.DefaultPH, 1e-9)
	assert.Equal(t, "Anushka", cfg.Speech.DefaultVoice)
	assert.Equal(t, 600*time.Millisecond, cfg.Speech.VoiceWait)
	assert.InDelta(t, 1.0, cfg.Speech.RateMultiplier, 1e-9)
	assert.False(t, cfg.Speech.DirectEnabled)
	assert.Equal(t, 200, cfg.History.PerClient)
	assert.Equal(t, 1024, cfg.History.MaxClients)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agrivoice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  backend: anthropic
  model: claude-haiku-4-5-20251001
  api_key: ${TEST_AGRIVOICE_KEY}
speech:
  direct_enabled: true
  endpoint: https://tts.example.com/v1
  rate_multiplier: 1.25
advisory:
  default_city: Lucknow
`), 0o600))
	t.Setenv("TEST_AGRIVOICE_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Speech.DirectEnabled)
	assert.Equal(t, "https://tts.example.com/v1", cfg.Speech.Endpoint)
	assert.InDelta(t, 1.25, cfg.Speech.RateMultiplier, 1e-9)
	assert.Equal(t, "Lucknow", cfg.Advisory.DefaultCity)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AGRIVOICE_LLM_API_KEY", "from-env")
	t.Setenv("AGRIVOICE_SPEECH_CREDENTIAL", "tts-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "tts-secret", cfg.Speech.Credential)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLM:     LLMConfig{Backend: "gemini"},
			Backend: BackendConfig{BaseURL: "http://localhost:8000"},
			Speech:  SpeechConfig{Native: NativeConfig{Backend: "none"}},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.LLM.Backend = "palm"
	assert.ErrorContains(t, c.Validate(), "unknown llm backend")

	c = base()
	c.Speech.Native.Backend = "espeak"
	assert.ErrorContains(t, c.Validate(), "native speech backend")

	c = base()
	c.Backend.BaseURL = ""
	assert.ErrorContains(t, c.Validate(), "base_url")

	c = base()
	c.Speech.RateMultiplier = -1
	assert.ErrorContains(t, c.Validate(), "rate_multiplier")
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("AGRIVOICE_TEST_REF", "resolved")
	assert.Equal(t, "resolved", resolveEnvRef("${AGRIVOICE_TEST_REF}"))
	assert.Equal(t, "${AGRIVOICE_MISSING_REF}", resolveEnvRef("${AGRIVOICE_MISSING_REF}"))
	assert.Equal(t, "plain", resolveEnvRef("plain"))
}
