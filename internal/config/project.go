package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ProjectFiles is the search order for project files.
var ProjectFiles = []string{"contraconf.toml", "contraconf.yaml", "contraconf.yml"}

// DefaultNetwork is used when neither the caller nor the project names one.
const DefaultNetwork = "polygon"

// Project is the on-disk project file. Optional scalars are pointers so an
// explicit false or 0 survives merging with the built-in defaults.
type Project struct {
	DefaultNetwork string                 `toml:"default_network,omitempty" yaml:"default_network,omitempty"`
	Compiler       CompilerFile           `toml:"compiler" yaml:"compiler"`
	Networks       map[string]NetworkFile `toml:"networks" yaml:"networks"`

	path string
}

// CompilerFile is the [compiler] table.
type CompilerFile struct {
	Version    string        `toml:"version,omitempty" yaml:"version,omitempty"`
	EVMVersion string        `toml:"evm_version,omitempty" yaml:"evm_version,omitempty"`
	ViaIR      *bool         `toml:"via_ir,omitempty" yaml:"via_ir,omitempty"`
	Optimizer  OptimizerFile `toml:"optimizer" yaml:"optimizer"`
}

// OptimizerFile is the [compiler.optimizer] table.
type OptimizerFile struct {
	Enabled *bool `toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	Runs    *int  `toml:"runs,omitempty" yaml:"runs,omitempty"`
}

// NetworkFile is one [networks.<name>] table.
type NetworkFile struct {
	URL           string     `toml:"url,omitempty" yaml:"url,omitempty"`
	ChainID       uint64     `toml:"chain_id,omitempty" yaml:"chain_id,omitempty"`
	Accounts      []string   `toml:"accounts,omitempty" yaml:"accounts,omitempty"`
	SigningKeyEnv string     `toml:"signing_key_env,omitempty" yaml:"signing_key_env,omitempty"`
	Verify        VerifyFile `toml:"verify,omitempty" yaml:"verify,omitempty"`
}

// VerifyFile is the [networks.<name>.verify] table.
type VerifyFile struct {
	Provider   string `toml:"provider,omitempty" yaml:"provider,omitempty"`
	APIURL     string `toml:"api_url,omitempty" yaml:"api_url,omitempty"`
	BrowserURL string `toml:"browser_url,omitempty" yaml:"browser_url,omitempty"`
	APIKey     string `toml:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv  string `toml:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
}

func defaultCompiler() CompilerFile {
	enabled := true
	runs := 200
	viaIR := false
	return CompilerFile{
		Version: "0.8.20",
		ViaIR:   &viaIR,
		Optimizer: OptimizerFile{
			Enabled: &enabled,
			Runs:    &runs,
		},
	}
}

// DefaultProject returns the built-in project used when no file exists.
// It carries no secrets.
func DefaultProject() *Project {
	p := &Project{DefaultNetwork: DefaultNetwork}
	// Cannot fail: presets and defaults are well-formed.
	_ = p.applyDefaults()
	return p
}

// LoadProject reads a project file, choosing the decoder by extension.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Project
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), &p)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing TOML %s: unknown key %q", path, undecoded[0].String())
		}
	}

	p.path = path
	if err := p.applyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults to %s: %w", path, err)
	}
	return &p, nil
}

// FindProject loads the first project file found in dir, or the built-in
// defaults when there is none.
func FindProject(dir string) (*Project, error) {
	for _, name := range ProjectFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadProject(path)
		}
	}
	return DefaultProject(), nil
}

// Path returns the file the project was loaded from, or "" for built-in defaults.
func (p *Project) Path() string {
	return p.path
}

// Source describes where the project came from.
func (p *Project) Source() string {
	if p.path == "" {
		return "built-in defaults"
	}
	return p.path
}

// NetworkNames returns the defined network names, sorted.
func (p *Project) NetworkNames() []string {
	names := make([]string, 0, len(p.Networks))
	for name := range p.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LiteralSecrets lists the fields that hold secret values directly in the
// project file instead of referencing a variable.
func (p *Project) LiteralSecrets() []string {
	var fields []string
	for _, name := range p.NetworkNames() {
		n := p.Networks[name]
		if len(nonBlank(n.Accounts)) > 0 {
			fields = append(fields, "networks."+name+".accounts")
		}
		if strings.TrimSpace(n.Verify.APIKey) != "" {
			fields = append(fields, "networks."+name+".verify.api_key")
		}
	}
	return fields
}

// Defaults selects a network and returns the resolver input for it. An
// empty name selects the project's default network.
func (p *Project) Defaults(network string) (Defaults, error) {
	if network == "" {
		network = p.DefaultNetwork
	}
	if network == "" {
		network = DefaultNetwork
	}

	n, ok := p.Networks[network]
	if !ok {
		return Defaults{}, invalid(ErrInvalidEndpoint, "networks."+network,
			fmt.Sprintf("network is not defined in %s", p.Source()))
	}

	c := p.Compiler
	return Defaults{
		Compiler: CompilerSettings{
			Version:          c.Version,
			OptimizerEnabled: derefBool(c.Optimizer.Enabled),
			OptimizerRuns:    derefInt(c.Optimizer.Runs),
			EVMVersion:       c.EVMVersion,
			ViaIR:            derefBool(c.ViaIR),
		},
		Network: NetworkEndpoint{
			Name:        network,
			RPCURL:      n.URL,
			ChainID:     n.ChainID,
			SigningKeys: append([]string(nil), n.Accounts...),
		},
		Verification: VerificationConfig{
			ProviderName: n.Verify.Provider,
			APIKey:       n.Verify.APIKey,
			APIURL:       n.Verify.APIURL,
			BrowserURL:   n.Verify.BrowserURL,
		},
		SigningKeyVar: n.SigningKeyEnv,
		APIKeyVar:     n.Verify.APIKeyEnv,
	}, nil
}

// applyDefaults fills unset fields from the built-in compiler defaults and
// the chain presets.
func (p *Project) applyDefaults() error {
	if err := mergo.Merge(&p.Compiler, defaultCompiler(), mergo.WithoutDereference); err != nil {
		return fmt.Errorf("merging compiler defaults: %w", err)
	}

	if len(p.Networks) == 0 {
		p.Networks = map[string]NetworkFile{DefaultNetwork: {}}
	}

	for name, n := range p.Networks {
		if preset, ok := presets[name]; ok {
			if err := mergo.Merge(&n, preset); err != nil {
				return fmt.Errorf("merging preset for %s: %w", name, err)
			}
		}
		if n.SigningKeyEnv == "" {
			n.SigningKeyEnv = EnvName(name, "PRIVATE_KEY")
		}
		if n.Verify.APIKeyEnv == "" {
			n.Verify.APIKeyEnv = EnvName(name, "EXPLORER_API_KEY")
		}
		p.Networks[name] = n
	}
	return nil
}

// EnvName builds the conventional variable name for a network secret,
// e.g. EnvName("polygon-amoy", "PRIVATE_KEY") = "POLYGON_AMOY_PRIVATE_KEY".
func EnvName(network, suffix string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(network))
	return name + "_" + suffix
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
