package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	t.Setenv("CONTRACONF_TEST_VALUE", "from-env")

	v, ok := Env().Lookup("CONTRACONF_TEST_VALUE")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	_, ok = Env().Lookup("CONTRACONF_TEST_UNSET_VALUE")
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	first := MapLookup{"A": "first-a", "EMPTY": "", "BLANK": "  \t"}
	second := MapLookup{"A": "second-a", "B": "second-b", "EMPTY": "second-empty", "BLANK": "second-blank"}

	l := Chain(first, nil, second)

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"A", "first-a", true},
		{"B", "second-b", true},
		{"EMPTY", "second-empty", true},
		{"BLANK", "second-blank", true},
		{"MISSING", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := l.Lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDotenv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		l, err := Dotenv(filepath.Join(t.TempDir(), ".env"))
		require.NoError(t, err)
		assert.Empty(t, l)
	})

	t.Run("empty path", func(t *testing.T) {
		l, err := Dotenv("")
		require.NoError(t, err)
		assert.Empty(t, l)
	})

	t.Run("reads values without exporting them", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(path, []byte(
			"# deployer\nCONTRACONF_DOTENV_KEY=0xabc\nexport CONTRACONF_DOTENV_API=\"quoted key\"\n"), 0600))

		l, err := Dotenv(path)
		require.NoError(t, err)

		v, ok := l.Lookup("CONTRACONF_DOTENV_KEY")
		assert.True(t, ok)
		assert.Equal(t, "0xabc", v)

		v, ok = l.Lookup("CONTRACONF_DOTENV_API")
		assert.True(t, ok)
		assert.Equal(t, "quoted key", v)

		_, exported := os.LookupEnv("CONTRACONF_DOTENV_KEY")
		assert.False(t, exported)
	})

	t.Run("environment beats dotenv in a chain", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(path, []byte("CONTRACONF_CHAIN_KEY=from-file\n"), 0600))
		t.Setenv("CONTRACONF_CHAIN_KEY", "from-env")

		dotenv, err := Dotenv(path)
		require.NoError(t, err)

		v, ok := Chain(Env(), dotenv).Lookup("CONTRACONF_CHAIN_KEY")
		assert.True(t, ok)
		assert.Equal(t, "from-env", v)
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{"CONTRACONF_LOG_LEVEL", "CONTRACONF_LOG_FORMAT", "CONTRACONF_ENV_FILE", "CONTRACONF_SECRETS_FILE", "CONTRACONF_NETWORK"} {
			t.Setenv(k, "")
			os.Unsetenv(k)
		}

		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, "warn", s.LogLevel)
		assert.Equal(t, "text", s.LogFormat)
		assert.Equal(t, ".env", s.EnvFile)
		assert.Equal(t, DefaultSecretsFile(), s.SecretsFile)
		assert.Empty(t, s.Network)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("CONTRACONF_LOG_LEVEL", "debug")
		t.Setenv("CONTRACONF_LOG_FORMAT", "json")
		t.Setenv("CONTRACONF_NETWORK", "amoy")
		t.Setenv("CONTRACONF_SECRETS_FILE", "/tmp/secrets.yaml")
		t.Setenv("CONTRACONF_METRICS_FILE", "/tmp/contraconf.prom")

		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, "debug", s.LogLevel)
		assert.Equal(t, "json", s.LogFormat)
		assert.Equal(t, "amoy", s.Network)
		assert.Equal(t, "/tmp/secrets.yaml", s.SecretsFile)
		assert.Equal(t, "/tmp/contraconf.prom", s.MetricsFile)
	})
}

func TestHomeDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".contraconf"), HomeDir())
	assert.Equal(t, filepath.Join("/home/tester", ".contraconf", "secrets.yaml"), DefaultSecretsFile())
}
