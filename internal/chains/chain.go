// Package chains provides the artifact and verification types shared by the
// chain client, the build-tool readers and the verification pipeline.
package chains

import (
	"encoding/json"
)

// Builder reads artifacts produced by a specific build tool.
type Builder interface {
	// Metadata
	Name() string        // "foundry"
	DisplayName() string // "Foundry"
	ConfigFile() string  // "foundry.toml"

	// Detection
	Detect(dir string) (bool, error)

	// Artifact handling
	ArtifactPath(dir, contract string) (string, error)
	Parse(artifactPath string) (*Artifact, error)
	GetVerificationInput(dir, contractName, sourcePath string) (*VerificationInput, error)
}

// VerifyOptions configures an on-chain bytecode comparison
type VerifyOptions struct {
	RPC          string
	Address      string
	ExpectedCode []byte
	Libraries    map[string]string // fully qualified name -> address
	Immutables   []ByteRange
}

// VerifyResult contains bytecode comparison results
type VerifyResult struct {
	Match     bool   // Whether the bytecode matches
	MatchType string // "full", "partial", "none"
	Message   string // Human-readable explanation
}

// Artifact is a compiled contract as read from a build tool's output.
type Artifact struct {
	Name  string       `json:"name"`
	Chain string       `json:"chain"` // "evm"
	EVM   *EVMArtifact `json:"evm,omitempty"`
}

// EVMArtifact contains EVM-specific contract data
type EVMArtifact struct {
	SourcePath       string          `json:"sourcePath"`
	License          string          `json:"license,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Immutables       []ByteRange     `json:"immutables,omitempty"`
	Compiler         EVMCompiler     `json:"compiler"`
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.20+commit.a1b2c3d4"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"` // "paris", "shanghai"
	ViaIR      bool            `json:"viaIR"`
}

// ByteRange is a slice of runtime bytecode the constructor fills in,
// such as an immutable variable.
type ByteRange struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// VerificationInput is what a block explorer needs to recompile a contract.
type VerificationInput struct {
	StandardJSON    []byte // solc standard JSON input
	SolcLongVersion string // "0.8.20+commit.a1b2c3d4"
}
