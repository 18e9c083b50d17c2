package foundry

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/contraconf/internal/config"
)

func resolvedPolygon(t *testing.T) config.ResolvedConfig {
	t.Helper()
	d, err := config.DefaultProject().Defaults("polygon")
	require.NoError(t, err)
	d.Compiler.EVMVersion = "paris"

	cfg, err := config.Resolve(d, config.MapLookup{
		"POLYGON_PRIVATE_KEY":      "0xsecretkey",
		"POLYGON_EXPLORER_API_KEY": "SECRETAPIKEY",
	}, config.IntentVerify)
	require.NoError(t, err)
	return cfg
}

func TestRenderProfile(t *testing.T) {
	cfg := resolvedPolygon(t)

	out, err := RenderProfile(cfg, ProfileOptions{Name: "polygon", APIKeyVar: "POLYGON_EXPLORER_API_KEY"})
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "SECRETAPIKEY")
	assert.NotContains(t, text, "0xsecretkey")
	assert.Contains(t, text, "${POLYGON_EXPLORER_API_KEY}")

	var got Config
	_, err = toml.Decode(text, &got)
	require.NoError(t, err)

	assert.Equal(t, Profile{
		SolcVersion:   "0.8.20",
		Optimizer:     true,
		OptimizerRuns: 200,
		EVMVersion:    "paris",
	}, got.Profile["polygon"])
	assert.Equal(t, map[string]string{"polygon": "https://polygon-rpc.com"}, got.RPCEndpoints)
	assert.Equal(t, EtherscanConfig{
		Key:   "${POLYGON_EXPLORER_API_KEY}",
		URL:   config.EtherscanV2API,
		Chain: 137,
	}, got.Etherscan["polygon"])
}

func TestRenderProfile_Defaults(t *testing.T) {
	cfg := resolvedPolygon(t)
	cfg.Compiler.OptimizerEnabled = false
	cfg.Compiler.OptimizerRuns = 0

	out, err := RenderProfile(cfg, ProfileOptions{})
	require.NoError(t, err)

	var got Config
	_, err = toml.Decode(string(out), &got)
	require.NoError(t, err)

	p, ok := got.Profile[DefaultProfile]
	require.True(t, ok)
	assert.False(t, p.Optimizer)
	assert.Contains(t, string(out), "optimizer = false")

	// no variable to reference, so no [etherscan] table at all
	assert.Empty(t, got.Etherscan)
	assert.NotContains(t, string(out), "SECRETAPIKEY")
}
