package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/netsweep/internal/db"
	"github.com/anstrom/netsweep/internal/errors"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved scan sessions",
	Long: `Show the most recent scan sessions stored in the database, newest first.
Requires database.enabled in the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled {
			return errDatabaseDisabled()
		}
		return withDatabase(cmd.Context(), cfg, func(database *db.DB) error {
			rows, err := db.NewScanRepository(database).ListSessions(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			return displaySessions(cmd.OutOrStdout(), rows)
		})
	},
}

var migrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "Show database migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Database.Enabled {
			return errDatabaseDisabled()
		}
		return withDatabase(cmd.Context(), cfg, func(database *db.DB) error {
			status, err := db.NewMigrator(database.DB).Status(cmd.Context())
			if err != nil {
				return err
			}
			return displayMigrations(cmd.OutOrStdout(), status)
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(migrationsCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of sessions to show")
}

func errDatabaseDisabled() error {
	return errors.NewConfigFieldError(errors.CodeConfiguration,
		"database storage is disabled; set database.enabled to true", "database.enabled", false)
}

func displaySessions(w io.Writer, rows []db.SessionRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No scan sessions found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Started", "Network", "Profile", "Duration", "Live", "Open Ports", "Probed", "Status")
	for _, r := range rows {
		status := "completed"
		if r.Interrupted {
			status = "interrupted"
		}
		_ = table.Append([]string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Network,
			r.Profile,
			r.Duration().Round(time.Millisecond).String(),
			strconv.FormatInt(r.LiveHosts, 10),
			strconv.FormatInt(r.OpenPorts, 10),
			strconv.FormatInt(r.AddressesProbed, 10),
			status,
		})
	}
	return table.Render()
}

func displayMigrations(w io.Writer, status []db.MigrationStatus) error {
	table := tablewriter.NewWriter(w)
	table.Header("Migration", "Applied", "Applied At")
	for _, s := range status {
		appliedAt := "-"
		if s.Applied {
			appliedAt = s.AppliedAt.Local().Format(time.DateTime)
		}
		_ = table.Append([]string{s.Name, strconv.FormatBool(s.Applied), appliedAt})
	}
	return table.Render()
}
