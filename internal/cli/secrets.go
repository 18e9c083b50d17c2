package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pendergraft/contraconf/internal/secrets"
)

func createSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the local secrets store",
		Long: `Manage signing keys and explorer API keys kept in the local secrets store
(~/.contraconf/secrets.yaml, readable only by you).

Stored values are used when the variable is not set in the environment or
the .env file.`,
	}

	cmd.AddCommand(createSecretsSetCmd())
	cmd.AddCommand(createSecretsUnsetCmd())
	cmd.AddCommand(createSecretsListCmd())

	return cmd
}

func createSecretsSetCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Store a secret",
		Long: `Store a secret under a variable name. The value is read from the
terminal without echo, or from stdin when it is not a terminal.

EXAMPLES:
  # Interactive (prompts for the value)
  contraconf secrets set POLYGON_EXPLORER_API_KEY

  # From a secrets manager
  vault read -field=key secret/polygonscan | contraconf secrets set POLYGON_EXPLORER_API_KEY
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsSet(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "description stored with the secret")

	return cmd
}

func createSecretsUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset NAME",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsUnset(cmd.OutOrStdout(), args[0])
		},
	}
}

func createSecretsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsList(cmd.OutOrStdout())
		},
	}
}

func runSecretsSet(in io.Reader, w io.Writer, name, note string) error {
	value, err := readSecret(in, w, fmt.Sprintf("Enter value for %s: ", name))
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("value for %s cannot be empty", name)
	}

	store := secrets.NewStore(settings.SecretsFile)
	if err := store.Set(name, value, note); err != nil {
		return fmt.Errorf("failed to save secret: %w", err)
	}

	fmt.Fprintf(w, "✅ Stored %s\n", name)
	fmt.Fprintf(w, "   Secrets file: %s\n", store.Path())
	return nil
}

func runSecretsUnset(w io.Writer, name string) error {
	store := secrets.NewStore(settings.SecretsFile)
	err := store.Delete(name)
	if errors.Is(err, secrets.ErrNotFound) {
		fmt.Fprintf(w, "No secret named %s\n", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove secret: %w", err)
	}
	fmt.Fprintf(w, "✅ Removed %s\n", name)
	return nil
}

func runSecretsList(w io.Writer) error {
	store := secrets.NewStore(settings.SecretsFile)
	names, err := store.Names()
	if err != nil {
		return fmt.Errorf("failed to read secrets: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintf(w, "No secrets stored in %s\n", store.Path())
		fmt.Fprintln(w, "\nRun 'contraconf secrets set NAME' to add one")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPDATED\tNOTE")
	for _, name := range names {
		sec, err := store.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, sec.UpdatedAt, sec.Note)
	}
	return tw.Flush()
}

// readSecret reads one value without echo from a terminal, or one line
// from a pipe.
func readSecret(in io.Reader, w io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w) // New line after password input
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimSpace(line), nil
}
