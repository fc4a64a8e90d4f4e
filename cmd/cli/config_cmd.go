package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anstrom/netsweep/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		return writeDefaultConfig(cmd, path, configForce)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the active configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", getConfigFilePath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
}

func writeDefaultConfig(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
