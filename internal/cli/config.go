package cli

import (
	"fmt"
	"os"

	"github.com/khanglvm/history-suits/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the 'config' command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Long: `Create, check and display ~/.history-suits.yaml.

Every key can also be set through the environment with the HISTORY_SUITS_
prefix, e.g. HISTORY_SUITS_SUITS_MAX_SUITS=4.

Commands:
  init      Write the default configuration
  validate  Check the merged configuration
  show      Print the merged configuration as YAML`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// newConfigInitCmd writes the default configuration.
func newConfigInitCmd() *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite; the old file is kept as .bak)", path)
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination (default: ~/.history-suits.yaml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

// newConfigValidateCmd loads and validates the merged configuration.
func newConfigValidateCmd() *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd, &flags); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// newConfigShowCmd prints the merged configuration.
func newConfigShowCmd() *cobra.Command {
	var flags commonFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, &flags)
			if err != nil {
				return err
			}
			data, err := config.Marshal(e.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	flags.register(cmd)
	return cmd
}
