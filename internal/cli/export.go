package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/chains/evm/foundry"
	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/observability/metrics"
)

func createExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export configuration for build tools",
	}

	cmd.AddCommand(createExportFoundryCmd())

	return cmd
}

func createExportFoundryCmd() *cobra.Command {
	var profile string
	var output string

	cmd := &cobra.Command{
		Use:   "foundry",
		Short: "Write a foundry.toml profile",
		Long: `Render the resolved compiler and network settings as a foundry.toml
fragment. The explorer key is written as a ${VAR} reference that forge
expands at run time; resolved secrets are never written.

EXAMPLES:
  # Print the default profile
  contraconf export foundry

  # Write a CI profile for amoy
  contraconf export foundry --network amoy --profile ci -o foundry.ci.toml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportFoundry(cmd.OutOrStdout(), profile, output)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", foundry.DefaultProfile, "foundry profile name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExportFoundry(w io.Writer, profile, output string) error {
	project, err := loadProject()
	if err != nil {
		return err
	}
	defaults, err := project.Defaults(settings.Network)
	if err != nil {
		return err
	}

	cfg, err := resolveProject(project, config.IntentCompile)
	metrics.Resolution(string(config.IntentCompile), config.ErrorKind(err))
	if err != nil {
		return err
	}

	data, err := foundry.RenderProfile(cfg, foundry.ProfileOptions{
		Name:      profile,
		APIKeyVar: defaults.APIKeyVar,
	})
	if err != nil {
		return err
	}

	if output == "" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(w, "✅ Wrote profile %q to %s\n", profile, output)
	return nil
}
