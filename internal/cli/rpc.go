package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/chains/evm"
	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/observability/metrics"
)

func createRPCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpc",
		Short: "RPC endpoint commands",
	}

	cmd.AddCommand(createRPCCheckCmd())

	return cmd
}

func createRPCCheckCmd() *cobra.Command {
	var intent string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the network's RPC endpoint",
		Long: `Connect to the configured RPC endpoint and check that it serves the
expected chain. With a signing key available, also show the deployer
address and its balance.

EXAMPLES:
  contraconf rpc check
  contraconf rpc check --network amoy --intent deploy
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runRPCCheck(ctx, cmd.OutOrStdout(), intent)
		},
	}

	cmd.Flags().StringVar(&intent, "intent", string(config.IntentCompile), config.IntentNames())
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "overall timeout")

	return cmd
}

func runRPCCheck(ctx context.Context, w io.Writer, intentFlag string) error {
	intent, err := config.ParseIntent(intentFlag)
	if err != nil {
		return err
	}

	cfg, _, err := resolve(intent)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "🔍 Probing %s (%s)\n", cfg.Network.Name, cfg.Network.RPCURL)

	res, err := evm.Probe(ctx, cfg, rpc.WithHTTPClient(httpClient()))
	metrics.RPCProbe(cfg.Network.Name, metrics.ResultOf(err))
	if err != nil {
		logger.Debug("rpc probe failed", "network", cfg.Network.Name, "error", err)
		return err
	}
	logger.Info("rpc probe ok", "network", res.Network, "chain_id", res.ChainID, "latency", res.Latency)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "✅ Endpoint reachable\n")
	fmt.Fprintf(w, "   Chain ID: %d\n", res.ChainID)
	fmt.Fprintf(w, "   Latency:  %s\n", res.Latency.Round(time.Millisecond))
	if res.Deployer != "" {
		fmt.Fprintf(w, "   Deployer: %s\n", res.Deployer)
		fmt.Fprintf(w, "   Balance:  %s\n", evm.FormatEther(res.Balance))
	}
	return nil
}
