package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/validation"
)

// ErrChainIDMismatch is returned when an endpoint serves a different chain
// than the one configured for the network.
var ErrChainIDMismatch = errors.New("chain ID mismatch")

// Client is a thin JSON-RPC client for one endpoint.
type Client struct {
	eth *ethclient.Client
	url string
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, opts ...rpc.ClientOption) (*Client, error) {
	rc, err := rpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	return &Client{eth: ethclient.NewClient(rc), url: rpcURL}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// ChainID returns the chain id reported by the endpoint.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return id.Uint64(), nil
}

// Code returns the runtime bytecode at address. Accounts without code
// return an empty slice.
func (c *Client) Code(ctx context.Context, address string) ([]byte, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, err
	}
	code, err := c.eth.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", address, err)
	}
	return code, nil
}

// Balance returns the latest balance of address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, err
	}
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", address, err)
	}
	return bal, nil
}

// ProbeResult describes a reachable endpoint.
type ProbeResult struct {
	Network  string
	RPCURL   string
	ChainID  uint64
	Latency  time.Duration
	Deployer string   // empty without a signing key
	Balance  *big.Int // nil without a signing key
}

// Probe checks that the configured endpoint answers and serves the
// configured chain. When a signing key is present it also reports the
// deployer address and its balance.
func Probe(ctx context.Context, cfg config.ResolvedConfig, opts ...rpc.ClientOption) (*ProbeResult, error) {
	start := time.Now()

	client, err := Dial(ctx, cfg.Network.RPCURL, opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Network.ChainID != 0 && cfg.Network.ChainID != chainID {
		return nil, fmt.Errorf("%w: %s reports %d, network %s expects %d",
			ErrChainIDMismatch, cfg.Network.RPCURL, chainID, cfg.Network.Name, cfg.Network.ChainID)
	}

	res := &ProbeResult{
		Network: cfg.Network.Name,
		RPCURL:  cfg.Network.RPCURL,
		ChainID: chainID,
		Latency: time.Since(start),
	}

	key, ok := cfg.SigningKey()
	if !ok {
		return res, nil
	}
	addr, err := DeployerAddress(key)
	if err != nil {
		return nil, err
	}
	bal, err := client.Balance(ctx, addr)
	if err != nil {
		return nil, err
	}
	res.Deployer = addr
	res.Balance = bal
	return res, nil
}

// FormatEther renders a wei amount with 18 decimals, trimming trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	f := new(big.Float).SetPrec(256).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	return f.Text('f', -1)
}
