package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/chains/evm"
	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/explorer"
	"github.com/pendergraft/contraconf/internal/observability/metrics"
	"github.com/pendergraft/contraconf/internal/validation"
	"github.com/pendergraft/contraconf/internal/verification/domain"
)

type verifyOptions struct {
	projectDir        string
	address           string
	contract          string
	constructorArgs   string
	libraries         []string
	noWait            bool
	skipBytecodeCheck bool
	timeout           time.Duration
}

func createVerifyCmd() *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify contract source on the network's block explorer",
		Long: `Submit the source of a deployed contract to the block explorer of the
selected network.

Before submitting, the build artifact's compiler settings are compared with
the resolved configuration and the deployed bytecode is compared with the
artifact (CBOR metadata and immutables are ignored).

Requires an explorer API key: set <NETWORK>_EXPLORER_API_KEY in the
environment, a .env file or with 'contraconf secrets set'.

EXAMPLES:
  # Verify a contract deployed on polygon
  contraconf verify --address 0x1234... --contract Token

  # Fully qualified name, constructor arguments and a linked library
  contraconf verify --network amoy \
    --address 0x1234... \
    --contract src/Vault.sol:Vault \
    --constructor-args 0x000000000000000000000000... \
    --library src/Math.sol:Math=0xabcd...

  # Submit and return without waiting for the result
  contraconf verify --address 0x1234... --contract Token --no-wait
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return runVerify(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.projectDir, "project", ".", "Foundry project directory")
	cmd.Flags().StringVar(&opts.address, "address", "", "contract address (required)")
	cmd.Flags().StringVar(&opts.contract, "contract", "", "contract name or path:name (required)")
	cmd.Flags().StringVar(&opts.constructorArgs, "constructor-args", "", "ABI-encoded constructor arguments")
	cmd.Flags().StringArrayVar(&opts.libraries, "library", nil, "linked library as path:name=address (repeatable)")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "return after submission")
	cmd.Flags().BoolVar(&opts.skipBytecodeCheck, "skip-bytecode-check", false, "do not compare with on-chain bytecode")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall timeout")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("contract")

	return cmd
}

func runVerify(ctx context.Context, w io.Writer, opts verifyOptions) error {
	libraries, err := parseLibraries(opts.libraries)
	if err != nil {
		return err
	}

	cfg, _, err := resolve(config.IntentVerify)
	if err != nil {
		return err
	}

	hc := httpClient()
	client, err := explorer.New(cfg.Verification, cfg.Network.ChainID,
		explorer.WithHTTPClient(hc),
		explorer.WithObserver(metrics.ExplorerRequest),
		explorer.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	chain := evm.NewChain(rpc.WithHTTPClient(hc))
	builder, err := chain.DetectBuilder(opts.projectDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "🔍 Verifying %s on %s\n", opts.contract, cfg.Network.Name)
	fmt.Fprintf(w, "   Address:  %s\n", opts.address)
	fmt.Fprintf(w, "   Explorer: %s\n", client.Provider())

	svc := domain.NewService(builder, client, chain, logger)
	result, err := svc.Verify(ctx, domain.VerifyRequest{
		Config:            cfg,
		ProjectDir:        opts.projectDir,
		Address:           opts.address,
		Contract:          opts.contract,
		ConstructorArgs:   opts.constructorArgs,
		Libraries:         libraries,
		SkipBytecodeCheck: opts.skipBytecodeCheck,
		NoWait:            opts.noWait,
	})
	metrics.Verification(client.Provider(), metrics.ResultOf(err))
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	printVerifyResult(w, result)
	return nil
}

func printVerifyResult(w io.Writer, result *domain.VerifyResult) {
	switch result.Status {
	case domain.StatusVerified:
		fmt.Fprintln(w, "✅ VERIFIED")
	case domain.StatusAlreadyVerified:
		fmt.Fprintln(w, "✅ ALREADY VERIFIED")
	case domain.StatusSubmitted:
		fmt.Fprintln(w, "⏳ SUBMITTED")
		fmt.Fprintf(w, "   GUID: %s\n", result.GUID)
	}

	switch result.MatchType {
	case "full":
		fmt.Fprintln(w, "   Deployed bytecode exactly matches the artifact (including metadata)")
	case "partial":
		fmt.Fprintln(w, "   Executable code matches, but metadata differs")
	}
	if result.Message != "" {
		fmt.Fprintf(w, "   %s\n", result.Message)
	}
	if result.URL != "" {
		fmt.Fprintf(w, "   %s\n", result.URL)
	}
}

// parseLibraries turns "path:Name=0xaddr" flags into a map.
func parseLibraries(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	libs := make(map[string]string, len(values))
	for _, v := range values {
		name, addr, ok := strings.Cut(v, "=")
		if !ok || !strings.Contains(name, ":") {
			return nil, fmt.Errorf("invalid --library %q (want path:Name=address)", v)
		}
		if err := validation.ValidateAddress(addr); err != nil {
			return nil, fmt.Errorf("invalid --library %q: %w", v, err)
		}
		libs[name] = addr
	}
	return libs, nil
}
