// Package config resolves the build, deploy and verify configuration of a
// contract project into a single validated record.
//
// Static defaults come from the project file (or built-in presets), secrets
// come from a Lookup (environment, .env file, local secrets store). Resolve
// combines them, validates the result and fails closed.
package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Intent is the operation the caller is about to perform with the
// resolved configuration. It decides which credentials are mandatory.
type Intent string

const (
	IntentCompile Intent = "compile"
	IntentDeploy  Intent = "deploy"
	IntentVerify  Intent = "verify"
)

// Intents lists every supported intent in display order.
var Intents = []Intent{IntentCompile, IntentDeploy, IntentVerify}

// ParseIntent converts a user-supplied string into an Intent.
func ParseIntent(s string) (Intent, error) {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, i := range Intents {
		if i == in {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q (want %s)", s, IntentNames())
}

// IntentNames returns the supported intents as "compile, deploy or verify".
func IntentNames() string {
	names := make([]string, len(Intents))
	for i, in := range Intents {
		names[i] = string(in)
	}
	last := len(names) - 1
	return strings.Join(names[:last], ", ") + " or " + names[last]
}

// CompilerSettings holds the solc settings handed to the compiler.
type CompilerSettings struct {
	Version          string
	OptimizerEnabled bool
	OptimizerRuns    int
	EVMVersion       string // empty = compiler default
	ViaIR            bool
}

// NetworkEndpoint describes the chain a project deploys to.
// An endpoint without signing keys is only usable for reads and verification.
type NetworkEndpoint struct {
	Name        string
	RPCURL      string
	ChainID     uint64 // 0 = unknown
	SigningKeys []string
}

// VerificationConfig describes the block explorer used for source verification.
type VerificationConfig struct {
	ProviderName string
	APIKey       string // empty = absent
	APIURL       string
	BrowserURL   string
}

// Defaults is the static record the resolver starts from.
type Defaults struct {
	Compiler     CompilerSettings
	Network      NetworkEndpoint
	Verification VerificationConfig

	// Names looked up to override the signing key and the API key.
	SigningKeyVar string
	APIKeyVar     string
}

// ResolvedConfig is the validated configuration for one invocation.
// It is returned by value and shares no memory with the Defaults it was
// built from; treat it as read-only.
type ResolvedConfig struct {
	Intent       Intent
	Compiler     CompilerSettings
	Network      NetworkEndpoint
	Verification VerificationConfig
}

// SigningKey returns the first signing key, if any.
func (c ResolvedConfig) SigningKey() (string, bool) {
	if len(c.Network.SigningKeys) == 0 {
		return "", false
	}
	return c.Network.SigningKeys[0], true
}

// CanDeploy reports whether the network has a signing key.
func (c ResolvedConfig) CanDeploy() bool {
	return len(c.Network.SigningKeys) > 0
}

// CanVerify reports whether an explorer API key is present.
func (c ResolvedConfig) CanVerify() bool {
	return c.Verification.APIKey != ""
}

// Redacted returns a copy with every secret replaced by a mask.
func (c ResolvedConfig) Redacted() ResolvedConfig {
	out := c
	out.Network.SigningKeys = make([]string, len(c.Network.SigningKeys))
	for i, k := range c.Network.SigningKeys {
		out.Network.SigningKeys[i] = MaskSecret(k)
	}
	if c.Verification.APIKey != "" {
		out.Verification.APIKey = MaskSecret(c.Verification.APIKey)
	}
	return out
}

// LogValue implements slog.LogValuer. Secrets never reach the log.
func (c ResolvedConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("intent", string(c.Intent)),
		slog.Group("compiler",
			slog.String("version", c.Compiler.Version),
			slog.Bool("optimizer", c.Compiler.OptimizerEnabled),
			slog.Int("runs", c.Compiler.OptimizerRuns),
			slog.String("evm_version", c.Compiler.EVMVersion),
			slog.Bool("via_ir", c.Compiler.ViaIR),
		),
		slog.Group("network",
			slog.String("name", c.Network.Name),
			slog.String("rpc_url", c.Network.RPCURL),
			slog.Uint64("chain_id", c.Network.ChainID),
			slog.Int("signing_keys", len(c.Network.SigningKeys)),
		),
		slog.Group("verification",
			slog.String("provider", c.Verification.ProviderName),
			slog.Bool("api_key", c.Verification.APIKey != ""),
		),
	)
}

// MaskSecret hides all but the edges of a secret.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
