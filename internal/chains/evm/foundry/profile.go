package foundry

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/pendergraft/contraconf/internal/config"
)

// DefaultProfile is the profile forge uses when FOUNDRY_PROFILE is unset.
const DefaultProfile = "default"

// Config is the subset of foundry.toml written by RenderProfile.
type Config struct {
	Profile      map[string]Profile         `toml:"profile"`
	RPCEndpoints map[string]string          `toml:"rpc_endpoints"`
	Etherscan    map[string]EtherscanConfig `toml:"etherscan,omitempty"`
}

// Profile holds the compiler settings of one [profile.<name>] table.
type Profile struct {
	SolcVersion   string `toml:"solc_version"`
	Optimizer     bool   `toml:"optimizer"`
	OptimizerRuns int    `toml:"optimizer_runs"`
	EVMVersion    string `toml:"evm_version,omitempty"`
	ViaIR         bool   `toml:"via_ir"`
}

// EtherscanConfig matches foundry's [etherscan.<network>] table.
type EtherscanConfig struct {
	Key   string `toml:"key"`
	URL   string `toml:"url,omitempty"`
	Chain uint64 `toml:"chain,omitempty"`
}

// ProfileOptions controls RenderProfile.
type ProfileOptions struct {
	Name      string // profile name, DefaultProfile when empty
	APIKeyVar string // variable forge expands for the explorer key
}

// RenderProfile renders cfg as a foundry.toml fragment. The explorer key is
// written as a ${VAR} reference; a resolved secret is never embedded.
func RenderProfile(cfg config.ResolvedConfig, opts ProfileOptions) ([]byte, error) {
	name := opts.Name
	if name == "" {
		name = DefaultProfile
	}

	out := Config{
		Profile: map[string]Profile{
			name: {
				SolcVersion:   cfg.Compiler.Version,
				Optimizer:     cfg.Compiler.OptimizerEnabled,
				OptimizerRuns: cfg.Compiler.OptimizerRuns,
				EVMVersion:    cfg.Compiler.EVMVersion,
				ViaIR:         cfg.Compiler.ViaIR,
			},
		},
		RPCEndpoints: map[string]string{
			cfg.Network.Name: cfg.Network.RPCURL,
		},
	}

	if opts.APIKeyVar != "" && (cfg.Verification.ProviderName != "" || cfg.Verification.APIURL != "") {
		out.Etherscan = map[string]EtherscanConfig{
			cfg.Network.Name: {
				Key:   "${" + opts.APIKeyVar + "}",
				URL:   cfg.Verification.APIURL,
				Chain: cfg.Network.ChainID,
			},
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# Generated by contraconf. Secrets are referenced, never embedded.\n")
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, fmt.Errorf("encoding foundry profile: %w", err)
	}
	return buf.Bytes(), nil
}
