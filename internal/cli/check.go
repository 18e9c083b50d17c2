package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/chains/evm"
	"github.com/pendergraft/contraconf/internal/config"
)

func createCheckCmd() *cobra.Command {
	var intent string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve and validate the configuration",
		Long: `Resolve the configuration for an intent and validate it.

The intent decides which credentials are required:
  compile  no credentials
  deploy   a signing key for the network
  verify   an explorer API key for the network

Nothing is compiled, deployed or sent anywhere.

EXAMPLES:
  # Validate compiler and network settings
  contraconf check

  # Make sure a deploy to amoy has a signing key
  contraconf check --intent deploy --network amoy
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), intent)
		},
	}

	cmd.Flags().StringVar(&intent, "intent", string(config.IntentCompile), config.IntentNames())

	return cmd
}

func runCheck(w io.Writer, intentFlag string) error {
	intent, err := config.ParseIntent(intentFlag)
	if err != nil {
		return err
	}

	cfg, project, err := resolve(intent)
	if err != nil {
		return err
	}

	// The key format is only checked where it is handed to the signer.
	var deployer string
	if intent == config.IntentDeploy {
		key, _ := cfg.SigningKey()
		deployer, err = evm.DeployerAddress(key)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "✅ Configuration valid for %s (%s)\n", intent, project.Source())
	fmt.Fprintln(w)
	printSummary(w, cfg)
	if deployer != "" {
		fmt.Fprintf(w, "  Deployer:   %s\n", deployer)
	}
	return nil
}

// printSummary writes the resolved configuration with secrets masked.
func printSummary(w io.Writer, cfg config.ResolvedConfig) {
	c := cfg.Compiler
	optimizer := "off"
	if c.OptimizerEnabled {
		optimizer = fmt.Sprintf("on, %d runs", c.OptimizerRuns)
	}
	evmVersion := c.EVMVersion
	if evmVersion == "" {
		evmVersion = "compiler default"
	}

	fmt.Fprintf(w, "  Compiler:   solc %s (optimizer %s, evm %s, via-ir %t)\n", c.Version, optimizer, evmVersion, c.ViaIR)

	n := cfg.Network
	chain := "unknown chain"
	if n.ChainID != 0 {
		chain = fmt.Sprintf("chain %d", n.ChainID)
	}
	fmt.Fprintf(w, "  Network:    %s (%s) %s\n", n.Name, chain, n.RPCURL)

	if cfg.CanDeploy() {
		fmt.Fprintf(w, "  Signer:     %d key(s) set\n", len(n.SigningKeys))
	} else {
		fmt.Fprintln(w, "  Signer:     (not set, read-only)")
	}

	v := cfg.Redacted().Verification
	provider := v.ProviderName
	if provider == "" {
		provider = "explorer"
	}
	if v.APIKey != "" {
		fmt.Fprintf(w, "  Verify:     %s (key %s)\n", provider, v.APIKey)
	} else {
		fmt.Fprintf(w, "  Verify:     %s (no API key)\n", provider)
	}
}
