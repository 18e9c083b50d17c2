package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/secrets"
)

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project file",
		Long: `Create a contraconf.toml project file in the current directory.

The file holds compiler and network settings only. Signing keys and
explorer API keys are referenced by variable name and never written to it.

EXAMPLES:
  # Create a project file for the default network
  contraconf config init

  # Start from another preset network
  contraconf config init --network base

  # Overwrite an existing project file
  contraconf config init --force

PRESET NETWORKS:
  ` + strings.Join(config.PresetNames(), ", ") + `
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), ".", settings.Network, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing project file")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display where each setting comes from and the resolved configuration.

Secrets are masked. Literal secrets found in the project file are reported
as warnings.

EXAMPLES:
  contraconf config show
  contraconf config show --network amoy
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	return cmd
}

const projectTemplate = `# contraconf project configuration
#
# Secrets never belong in this file. Provide them through the environment,
# a .env file or 'contraconf secrets set':
#   %[2]s   signing key for deployments
#   %[3]s   block explorer API key for verification

default_network = "%[1]s"

[compiler]
version = "0.8.20"
# evm_version = "paris"
via_ir = false

[compiler.optimizer]
enabled = true
runs = 200

# url, chain_id and explorer settings of preset networks are built in.
[networks.%[1]s]
# url = "https://..."
# chain_id = 137
# signing_key_env = "%[2]s"

# [networks.%[1]s.verify]
# provider = "etherscan"
# api_url = "https://api.etherscan.io/v2/api"
# browser_url = "https://etherscan.io"
# api_key_env = "%[3]s"
`

func runConfigInit(w io.Writer, dir, network string, force bool) error {
	for _, name := range config.ProjectFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("project file already exists at %s (use --force to overwrite)", path)
		}
	}

	if strings.TrimSpace(network) == "" {
		network = config.DefaultNetwork
	}
	// The template leaves url and chain_id to the preset.
	presets := config.PresetNames()
	if !slices.Contains(presets, network) {
		return fmt.Errorf("no preset for network %q (known: %s); write the project file by hand", network, strings.Join(presets, ", "))
	}
	content := fmt.Sprintf(projectTemplate, network,
		config.EnvName(network, "PRIVATE_KEY"), config.EnvName(network, "EXPLORER_API_KEY"))

	path := filepath.Join(dir, config.ProjectFiles[0])
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}

	fmt.Fprintf(w, "Created %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  1. Edit %s to customize compiler and network settings\n", config.ProjectFiles[0])
	fmt.Fprintf(w, "  2. Run 'contraconf secrets set %s' to store your explorer key\n", config.EnvName(network, "EXPLORER_API_KEY"))
	fmt.Fprintln(w, "  3. Run 'contraconf check --intent verify' to validate")

	return nil
}

func runConfigShow(w io.Writer) error {
	project, err := loadProject()
	if err != nil {
		return err
	}
	defaults, err := project.Defaults(settings.Network)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Configuration sources (in order of precedence):")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "1. Environment variables")
	dotenv, err := config.Dotenv(settings.EnvFile)
	if err != nil {
		return err
	}
	store := secrets.NewStore(settings.SecretsFile)
	for _, name := range []string{defaults.SigningKeyVar, defaults.APIKeyVar} {
		fmt.Fprintf(w, "   %s=%s\n", name, describeSecret(name, config.Env(), dotenv, store))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "2. Dotenv file: %s\n", orNone(settings.EnvFile))
	fmt.Fprintf(w, "3. Secrets store: %s\n", orNone(settings.SecretsFile))
	fmt.Fprintf(w, "4. Project file: %s\n", project.Source())
	fmt.Fprintf(w, "   Networks: %s\n", strings.Join(project.NetworkNames(), ", "))
	fmt.Fprintln(w)

	cfg, err := resolveProject(project, config.IntentCompile)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Effective configuration:")
	printSummary(w, cfg)

	if literal := project.LiteralSecrets(); len(literal) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "⚠️  Secrets stored directly in the project file:")
		for _, field := range literal {
			fmt.Fprintf(w, "   %s\n", field)
		}
		fmt.Fprintln(w, "   Move them to the environment or 'contraconf secrets set' and reference them by name.")
		logger.Warn("literal secrets in project file", "path", project.Path(), "fields", literal)
	}

	return nil
}

// describeSecret reports which source provides name without showing the value.
func describeSecret(name string, sources ...config.Lookup) string {
	labels := []string{"environment", "dotenv", "secrets store"}
	for i, src := range sources {
		v, ok := src.Lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		label := "lookup"
		if i < len(labels) {
			label = labels[i]
		}
		return "set (from " + label + ")"
	}
	return "(not set)"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
