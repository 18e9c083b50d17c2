// Package foundry reads Foundry build output and renders foundry.toml
// profiles from a resolved configuration.
package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/contraconf/internal/chains"
)

// ErrArtifactNotFound is returned when no build artifact exists for a contract.
var ErrArtifactNotFound = errors.New("artifact not found")

// Builder implements chains.Builder for Foundry projects
type Builder struct{}

// New creates a new Foundry builder
func New() *Builder {
	return &Builder{}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "foundry"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Foundry"
}

// ConfigFile returns the config file name
func (b *Builder) ConfigFile() string {
	return "foundry.toml"
}

// Detect checks if a directory is a Foundry project
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, b.ConfigFile()))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SplitContract splits "src/Token.sol:Token" into its source path and name.
// A bare name returns an empty source path.
func SplitContract(id string) (sourcePath, name string) {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// ArtifactPath locates out/{Source}.sol/{Contract}.json for a contract given
// as "Name" or "path/Source.sol:Name". A bare name must be unambiguous.
func (b *Builder) ArtifactPath(dir, contract string) (string, error) {
	outDir := filepath.Join(dir, "out")
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		return "", fmt.Errorf("out directory not found - run 'forge build' first")
	}

	sourcePath, name := SplitContract(contract)
	if name == "" {
		return "", fmt.Errorf("contract name cannot be empty")
	}

	if sourcePath != "" {
		path := filepath.Join(outDir, filepath.Base(sourcePath), name+".json")
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, contract)
		}
		return path, nil
	}

	matches, err := filepath.Glob(filepath.Join(outDir, "*.sol", name+".json"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, contract)
	case 1:
		return matches[0], nil
	}
	sort.Strings(matches)
	return "", fmt.Errorf("contract %s is ambiguous (%d artifacts), use path/Source.sol:%s", name, len(matches), name)
}

// Parse parses a Foundry artifact file
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw FoundryArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	// Skip if no bytecode (interfaces, abstract contracts)
	if raw.Bytecode.Object == "" || raw.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	var metadata FoundryMetadata
	if raw.RawMetadata != "" {
		_ = json.Unmarshal([]byte(raw.RawMetadata), &metadata) // Non-fatal, continue without metadata
	}

	return &chains.Artifact{
		Name:  strings.TrimSuffix(filepath.Base(artifactPath), ".json"),
		Chain: "evm",
		EVM: &chains.EVMArtifact{
			SourcePath:       getFirstKey(metadata.Settings.CompilationTarget),
			License:          metadata.Sources.FirstLicense(),
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode.Object,
			DeployedBytecode: raw.DeployedBytecode.Object,
			Immutables:       raw.DeployedBytecode.ImmutableRanges(),
			Compiler: chains.EVMCompiler{
				Version:    metadata.Compiler.Version,
				EVMVersion: metadata.Settings.EVMVersion,
				ViaIR:      metadata.Settings.ViaIR,
				Optimizer: chains.OptimizerConfig{
					Enabled: metadata.Settings.Optimizer.Enabled,
					Runs:    metadata.Settings.Optimizer.Runs,
				},
			},
		},
	}, nil
}

// buildInfoOutputContracts represents output.contracts from Solidity compiler output
type buildInfoOutputContracts map[string]map[string]json.RawMessage

// GetVerificationInput extracts Standard JSON Input and full solc version from build-info.
// When sourcePath is non-empty, finds the build-info whose output contains contracts[sourcePath][contractName].
// When sourcePath is empty, returns the first valid build-info.
func (b *Builder) GetVerificationInput(dir, contractName, sourcePath string) (*chains.VerificationInput, error) {
	buildInfoDir := filepath.Join(dir, "out", "build-info")

	entries, err := os.ReadDir(buildInfoDir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory (run 'forge build --build-info'): %w", err)
	}

	var firstMatch *chains.VerificationInput

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(buildInfoDir, entry.Name()))
		if err != nil {
			continue
		}

		var buildInfo BuildInfo
		if err := json.Unmarshal(data, &buildInfo); err != nil {
			continue
		}

		if sourcePath != "" && !buildInfo.produced(sourcePath, contractName) {
			continue
		}

		stdJSON, err := stripFoundryStandardJSONKeys(buildInfo.Input)
		if err != nil {
			continue
		}

		vi := &chains.VerificationInput{
			StandardJSON:    stdJSON,
			SolcLongVersion: buildInfo.SolcLongVersion,
		}
		if sourcePath != "" {
			return vi, nil
		}
		if firstMatch == nil {
			firstMatch = vi
		}
	}

	if firstMatch != nil {
		return firstMatch, nil
	}
	return nil, fmt.Errorf("build-info not found for contract %s", contractName)
}

// foundryStandardJSONKeysToStrip are top-level keys Foundry adds that the Solidity compiler rejects.
// The standard JSON input only allows: language, sources, settings.
var foundryStandardJSONKeysToStrip = []string{"allowPaths", "basePath", "includePaths", "version"}

func stripFoundryStandardJSONKeys(input json.RawMessage) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(input, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("empty standard JSON input")
	}
	for _, key := range foundryStandardJSONKeysToStrip {
		delete(m, key)
	}
	return json.Marshal(m)
}

// FoundryArtifact represents the structure of a Foundry artifact JSON file
type FoundryArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         BytecodeObject  `json:"bytecode"`
	DeployedBytecode BytecodeObject  `json:"deployedBytecode"`
	RawMetadata      string          `json:"rawMetadata"`
}

// BytecodeObject represents bytecode in a Foundry artifact
type BytecodeObject struct {
	Object              string                       `json:"object"`
	LinkReferences      map[string]map[string][]Link `json:"linkReferences"`
	ImmutableReferences map[string][]Link            `json:"immutableReferences"`
}

// ImmutableRanges flattens immutable references, ordered by offset.
func (o BytecodeObject) ImmutableRanges() []chains.ByteRange {
	var out []chains.ByteRange
	for _, refs := range o.ImmutableReferences {
		for _, l := range refs {
			out = append(out, chains.ByteRange{Start: l.Start, Length: l.Length})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Link is a byte range inside bytecode (library link or immutable)
type Link struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// FoundryMetadata represents the parsed rawMetadata field
type FoundryMetadata struct {
	Compiler CompilerMeta `json:"compiler"`
	Language string       `json:"language"`
	Settings SettingsMeta `json:"settings"`
	Sources  SourcesMeta  `json:"sources"`
}

// CompilerMeta contains compiler information
type CompilerMeta struct {
	Version string `json:"version"`
}

// SettingsMeta contains compiler settings
type SettingsMeta struct {
	CompilationTarget map[string]string `json:"compilationTarget"`
	EVMVersion        string            `json:"evmVersion"`
	Optimizer         OptimizerMeta     `json:"optimizer"`
	ViaIR             bool              `json:"viaIR"`
}

// OptimizerMeta contains optimizer settings
type OptimizerMeta struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// SourcesMeta contains source file information
type SourcesMeta map[string]SourceMeta

// SourceMeta contains individual source file info
type SourceMeta struct {
	Keccak256 string `json:"keccak256"`
	License   string `json:"license"`
}

// FirstLicense returns the license of the first source, in path order, that declares one.
func (s SourcesMeta) FirstLicense() string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if s[p].License != "" {
			return s[p].License
		}
	}
	return ""
}

// BuildInfo represents a Foundry build-info file
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`     // Short: "0.8.28"
	SolcLongVersion string          `json:"solcLongVersion"` // Full: "0.8.28+commit.7893614a"
	Input           json.RawMessage `json:"input"`           // Standard JSON Input
	Output          json.RawMessage `json:"output"`          // Compilation output
}

// produced reports whether this build compiled contracts[sourcePath][contractName].
func (bi BuildInfo) produced(sourcePath, contractName string) bool {
	var output struct {
		Contracts buildInfoOutputContracts `json:"contracts"`
	}
	if err := json.Unmarshal(bi.Output, &output); err != nil {
		return false
	}
	_, ok := output.Contracts[sourcePath][contractName]
	return ok
}

// getFirstKey returns the first key from a map
func getFirstKey(m map[string]string) string {
	for k := range m {
		return k
	}
	return ""
}
