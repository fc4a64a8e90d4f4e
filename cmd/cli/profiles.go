package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netsweep/internal/config"
	"github.com/anstrom/netsweep/internal/profiles"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the scan profiles",
	Long: `Display the built-in scan profiles with any overrides from the
configuration file applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return displayProfiles(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func displayProfiles(w io.Writer, cfg *config.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Hosts", "Ports/Host", "Ping Timeout", "Port Timeout", "Port Set", "Peak Probes", "Description")

	for _, name := range profiles.Names() {
		p, err := cfg.Profile(name)
		if err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		_ = table.Append([]string{
			p.Name,
			strconv.Itoa(p.HostConcurrency),
			strconv.Itoa(p.PortConcurrency),
			p.LivenessTimeout.String(),
			p.PortTimeout.String(),
			fmt.Sprintf("%s (%d)", p.PortSet, p.PortSet.Size()),
			strconv.Itoa(p.PeakPortProbes()),
			p.Description,
		})
	}
	return table.Render()
}
