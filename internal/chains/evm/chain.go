// Package evm provides the EVM chain client for Ethereum and compatible chains.
package evm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pendergraft/contraconf/internal/chains"
	"github.com/pendergraft/contraconf/internal/chains/evm/foundry"
)

// ErrNoCode is returned when no contract is deployed at an address.
var ErrNoCode = errors.New("no contract code at address")

// Chain bundles the build-tool readers and the on-chain checks for EVM networks.
type Chain struct {
	builders []chains.Builder
	rpcOpts  []rpc.ClientOption
}

// NewChain creates a new EVM chain module. opts apply to every RPC
// connection it opens.
func NewChain(opts ...rpc.ClientOption) *Chain {
	return &Chain{
		builders: []chains.Builder{
			foundry.New(),
		},
		rpcOpts: opts,
	}
}

// Name returns the chain identifier
func (c *Chain) Name() string {
	return "evm"
}

// DisplayName returns a human-readable name
func (c *Chain) DisplayName() string {
	return "Ethereum/EVM"
}

// DetectBuilder detects which builder is used in the given directory
func (c *Chain) DetectBuilder(dir string) (chains.Builder, error) {
	for _, b := range c.builders {
		detected, err := b.Detect(dir)
		if err != nil {
			continue
		}
		if detected {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no EVM builder detected in %s", dir)
}

// VerifyDeployment verifies that deployed bytecode matches expected bytecode.
// An address without code returns ErrNoCode.
func (c *Chain) VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error) {
	deployed, err := c.GetDeployedBytecode(ctx, opts.RPC, opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployed bytecode: %w", err)
	}
	if len(deployed) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, opts.Address)
	}

	return CompareBytecode(deployed, opts.ExpectedCode, opts.Libraries, opts.Immutables), nil
}

// GetDeployedBytecode fetches the runtime bytecode at address with eth_getCode.
func (c *Chain) GetDeployedBytecode(ctx context.Context, rpcURL string, address string) ([]byte, error) {
	client, err := Dial(ctx, rpcURL, c.rpcOpts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return client.Code(ctx, address)
}
