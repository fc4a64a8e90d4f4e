// Package cli provides the command-line interface for netsweep. It
// implements the Cobra command tree: the profile scan commands, the
// profiles listing, the watch scheduler and the database history.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/netsweep/internal/config"
	"github.com/anstrom/netsweep/internal/logging"
)

const defaultConfigFile = "netsweep.yaml"

var (
	cfgFile string
	verbose bool
)

// Build information, set by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "netsweep",
	Short: "Fast LAN discovery and port scanner",
	Long: `netsweep finds the live hosts of an IPv4 network, probes their TCP ports,
identifies the services behind open ports and makes a rough guess at each
host's operating system.

Scans run under a named profile (quick, full, all, stealth) that fixes the
concurrency caps, timeouts and port set.`,
	Version:       getVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./netsweep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in the config file and NETSWEEP_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("netsweep")
	}

	viper.SetEnvPrefix("NETSWEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	configErr := viper.ReadInConfig()

	initLogging()

	if configErr == nil && verbose {
		logging.Info("using config file", "path", viper.ConfigFileUsed())
	}
}

// setConfigDefaults registers every key that may be overridden from the
// environment.
func setConfigDefaults() {
	defaults := config.Default()

	viper.SetDefault("scanning.liveness_method", defaults.Scanning.LivenessMethod)
	viper.SetDefault("scanning.max_candidates", defaults.Scanning.MaxCandidates)
	viper.SetDefault("scanning.lookup_timeout", defaults.Scanning.LookupTimeout)
	viper.SetDefault("scanning.dns_server", defaults.Scanning.DNSServer)

	viper.SetDefault("logging.level", string(defaults.Logging.Level))
	viper.SetDefault("logging.format", string(defaults.Logging.Format))
	viper.SetDefault("logging.output", defaults.Logging.Output)

	viper.SetDefault("database.enabled", defaults.Database.Enabled)
	viper.SetDefault("database.host", defaults.Database.Host)
	viper.SetDefault("database.port", defaults.Database.Port)
	viper.SetDefault("database.database", defaults.Database.Database)
	viper.SetDefault("database.username", defaults.Database.Username)
	viper.SetDefault("database.password", defaults.Database.Password)
	viper.SetDefault("database.ssl_mode", defaults.Database.SSLMode)

	viper.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
	viper.SetDefault("export.directory", defaults.Export.Directory)
}

// getConfigFilePath returns the config file found by viper, or the default
// name in the working directory.
func getConfigFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return defaultConfigFile
}

// loadConfig loads the config file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return nil, err
	}
	applyViperOverrides(cfg, viper.GetViper())
	if verbose {
		cfg.Logging.Level = logging.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyViperOverrides copies the merged viper view (file, NETSWEEP_*
// environment, defaults) onto cfg. Empty strings and non-positive numbers
// leave the loaded value alone; database.enabled is taken as is so the
// environment can switch persistence off.
func applyViperOverrides(cfg *config.Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	setString("scanning.liveness_method", &cfg.Scanning.LivenessMethod)
	setString("scanning.dns_server", &cfg.Scanning.DNSServer)
	if n := v.GetInt("scanning.max_candidates"); n > 0 {
		cfg.Scanning.MaxCandidates = n
	}
	if d := v.GetDuration("scanning.lookup_timeout"); d > 0 {
		cfg.Scanning.LookupTimeout = d
	}

	var level, format string
	setString("logging.level", &level)
	setString("logging.format", &format)
	if level != "" {
		cfg.Logging.Level = logging.LogLevel(level)
	}
	if format != "" {
		cfg.Logging.Format = logging.LogFormat(format)
	}
	setString("logging.output", &cfg.Logging.Output)

	if v.IsSet("database.enabled") {
		cfg.Database.Enabled = v.GetBool("database.enabled")
	}
	setString("database.host", &cfg.Database.Host)
	if port := v.GetInt("database.port"); port > 0 {
		cfg.Database.Port = port
	}
	setString("database.database", &cfg.Database.Database)
	setString("database.username", &cfg.Database.Username)
	setString("database.password", &cfg.Database.Password)
	setString("database.ssl_mode", &cfg.Database.SSLMode)

	setString("metrics.textfile", &cfg.Metrics.Textfile)
	setString("export.directory", &cfg.Export.Directory)
}

func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging installs the default logger from the configuration.
func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := cfg.Logging
	logConfig.AddSource = logConfig.Level == logging.LevelDebug

	logger, err := logging.New(logConfig)
	if err != nil {
		logging.SetDefault(logging.NewDefault())
		logging.Warn("failed to initialize logging, using defaults", "error", err)
		return
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
