package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pendergraft/contraconf/internal/validation"
)

// Resolve builds the configuration for one invocation.
//
// Only the signing key and the API key may be overridden through lookup;
// every other field comes from defaults. A present, non-blank lookup value
// wins over the default. The first failed rule is returned and no partial
// configuration is ever produced.
func Resolve(defaults Defaults, lookup Lookup, intent Intent) (ResolvedConfig, error) {
	if _, err := ParseIntent(string(intent)); err != nil {
		return ResolvedConfig{}, err
	}

	compiler := defaults.Compiler
	compiler.Version = validation.NormalizeVersion(compiler.Version)
	compiler.EVMVersion = strings.TrimSpace(compiler.EVMVersion)
	if err := validateCompiler(compiler); err != nil {
		return ResolvedConfig{}, err
	}
	if err := validateEndpoint(defaults.Network); err != nil {
		return ResolvedConfig{}, err
	}

	network := defaults.Network
	network.SigningKeys = nonBlank(defaults.Network.SigningKeys)
	if key, ok := lookupValue(lookup, defaults.SigningKeyVar); ok {
		network.SigningKeys = []string{key}
	}

	verification := defaults.Verification
	verification.APIKey = strings.TrimSpace(verification.APIKey)
	if key, ok := lookupValue(lookup, defaults.APIKeyVar); ok {
		verification.APIKey = key
	}

	switch intent {
	case IntentDeploy:
		if len(network.SigningKeys) == 0 {
			return ResolvedConfig{}, invalid(ErrMissingSigningKey, "networks."+network.Name+".signing_keys",
				fmt.Sprintf("deploy requires a signing key (set %s)", varHint(defaults.SigningKeyVar)))
		}
	case IntentVerify:
		if verification.APIKey == "" {
			return ResolvedConfig{}, invalid(ErrMissingAPIKey, "networks."+network.Name+".verify.api_key",
				fmt.Sprintf("verify requires an explorer API key (set %s)", varHint(defaults.APIKeyVar)))
		}
	}

	return ResolvedConfig{
		Intent:       intent,
		Compiler:     compiler,
		Network:      network,
		Verification: verification,
	}, nil
}

func validateCompiler(c CompilerSettings) error {
	if err := validation.ValidateCompilerVersion(c.Version); err != nil {
		return invalid(ErrInvalidCompilerConfig, "compiler.version", err.Error())
	}
	if c.EVMVersion != "" {
		if err := validation.ValidateEVMVersion(c.EVMVersion); err != nil {
			return invalid(ErrInvalidCompilerConfig, "compiler.evm_version", err.Error())
		}
	}
	if c.OptimizerRuns < 0 {
		return invalid(ErrInvalidOptimizerConfig, "compiler.optimizer.runs", "runs must not be negative")
	}
	if c.OptimizerEnabled && c.OptimizerRuns == 0 {
		return invalid(ErrInvalidOptimizerConfig, "compiler.optimizer.runs", "runs must be positive when the optimizer is enabled")
	}
	return nil
}

func validateEndpoint(n NetworkEndpoint) error {
	if strings.TrimSpace(n.Name) == "" {
		return invalid(ErrInvalidEndpoint, "networks", "network name must not be empty")
	}
	field := "networks." + n.Name + ".url"
	u, err := url.Parse(n.RPCURL)
	if err != nil {
		return invalid(ErrInvalidEndpoint, field, fmt.Sprintf("malformed URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(ErrInvalidEndpoint, field, "scheme must be http or https")
	}
	if u.Host == "" {
		return invalid(ErrInvalidEndpoint, field, "URL must include a host")
	}
	return nil
}

func lookupValue(lookup Lookup, name string) (string, bool) {
	if lookup == nil || name == "" {
		return "", false
	}
	v, ok := lookup.Lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func varHint(name string) string {
	if name == "" {
		return "a value in the project file"
	}
	return name
}
