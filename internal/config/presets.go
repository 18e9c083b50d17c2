package config

import "sort"

// EtherscanV2API is the unified Etherscan endpoint; the chain is selected
// with the chainid query parameter.
const EtherscanV2API = "https://api.etherscan.io/v2/api"

// presets fill in well-known networks so a project only has to name them.
var presets = map[string]NetworkFile{
	"ethereum": {
		URL:     "https://ethereum-rpc.publicnode.com",
		ChainID: 1,
		Verify:  VerifyFile{Provider: "etherscan", APIURL: EtherscanV2API, BrowserURL: "https://etherscan.io"},
	},
	"sepolia": {
		URL:     "https://ethereum-sepolia-rpc.publicnode.com",
		ChainID: 11155111,
		Verify:  VerifyFile{Provider: "etherscan", APIURL: EtherscanV2API, BrowserURL: "https://sepolia.etherscan.io"},
	},
	"polygon": {
		URL:     "https://polygon-rpc.com",
		ChainID: 137,
		Verify:  VerifyFile{Provider: "polygonscan", APIURL: EtherscanV2API, BrowserURL: "https://polygonscan.com"},
	},
	"amoy": {
		URL:     "https://rpc-amoy.polygon.technology",
		ChainID: 80002,
		Verify:  VerifyFile{Provider: "polygonscan", APIURL: EtherscanV2API, BrowserURL: "https://amoy.polygonscan.com"},
	},
	"base": {
		URL:     "https://mainnet.base.org",
		ChainID: 8453,
		Verify:  VerifyFile{Provider: "basescan", APIURL: EtherscanV2API, BrowserURL: "https://basescan.org"},
	},
	"arbitrum": {
		URL:     "https://arb1.arbitrum.io/rpc",
		ChainID: 42161,
		Verify:  VerifyFile{Provider: "arbiscan", APIURL: EtherscanV2API, BrowserURL: "https://arbiscan.io"},
	},
	"optimism": {
		URL:     "https://mainnet.optimism.io",
		ChainID: 10,
		Verify:  VerifyFile{Provider: "etherscan", APIURL: EtherscanV2API, BrowserURL: "https://optimistic.etherscan.io"},
	},
}

// PresetNames returns the networks contraconf knows without configuration.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
