package cli

import (
	"bytes"
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netsweep/internal/config"
	"github.com/anstrom/netsweep/internal/db"
	scanerrors "github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/export"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/profiles"
	"github.com/anstrom/netsweep/internal/scanning"
)

var started = time.Date(2026, 5, 2, 14, 3, 9, 0, time.UTC)

func sampleResult(t *testing.T) *scanning.Result {
	t.Helper()
	sess := scanning.NewSession("192.168.1.0/24", profiles.Quick())
	sess.StartedAt = started
	result := scanning.NewResult(sess)
	result.Duration = 2 * time.Second

	web := scanning.NewHostRecord(scanning.LiveHost{
		Addr: netip.MustParseAddr("192.168.1.10"),
		RTT:  2 * time.Millisecond,
	}, started)
	require.NoError(t, web.SetHostname("web.lan"))
	require.NoError(t, web.SetHardware("B8:27:EB:00:00:01", "Raspberry Pi"))
	require.NoError(t, web.AddPort(22, "SSH (SSH-2.0-OpenSSH_9.6)"))
	require.NoError(t, web.AddPort(80, "HTTP"))
	result.Add(web)

	quiet := scanning.NewHostRecord(scanning.LiveHost{
		Addr: netip.MustParseAddr("192.168.1.2"),
		RTT:  time.Millisecond,
	}, started)
	result.Add(quiet)

	result.Live = []scanning.LiveHost{
		{Addr: netip.MustParseAddr("192.168.1.2"), RTT: time.Millisecond},
		{Addr: netip.MustParseAddr("192.168.1.10"), RTT: 2 * time.Millisecond},
	}
	return result
}

func TestGetConfigFilePath(t *testing.T) {
	defer viper.Reset()

	tests := []struct {
		name           string
		viperConfigSet string
		expectedResult string
	}{
		{
			name:           "returns default when no config file set",
			expectedResult: "netsweep.yaml",
		},
		{
			name:           "returns viper config file when set",
			viperConfigSet: "/etc/netsweep/netsweep.yaml",
			expectedResult: "/etc/netsweep/netsweep.yaml",
		},
		{
			name:           "returns relative path when viper has relative path",
			viperConfigSet: "custom.yaml",
			expectedResult: "custom.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			if tt.viperConfigSet != "" {
				viper.SetConfigFile(tt.viperConfigSet)
			}
			assert.Equal(t, tt.expectedResult, getConfigFilePath())
		})
	}
}

func TestApplyViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("scanning.max_candidates", 256)
	v.Set("scanning.liveness_method", "icmp")
	v.Set("scanning.lookup_timeout", "750ms")
	v.Set("logging.level", "debug")
	v.Set("database.enabled", true)
	v.Set("database.host", "db.internal")
	v.Set("database.port", 6543)
	v.Set("export.directory", "/var/lib/netsweep")

	cfg := config.Default()
	applyViperOverrides(cfg, v)

	assert.Equal(t, 256, cfg.Scanning.MaxCandidates)
	assert.Equal(t, "icmp", cfg.Scanning.LivenessMethod)
	assert.Equal(t, 750*time.Millisecond, cfg.Scanning.LookupTimeout)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "/var/lib/netsweep", cfg.Export.Directory)
}

func TestApplyViperOverridesKeepsDefaults(t *testing.T) {
	cfg := config.Default()
	want := config.Default()

	applyViperOverrides(cfg, viper.New())

	assert.Equal(t, want, cfg)
}

func TestApplyViperOverridesDatabaseEnabled(t *testing.T) {
	t.Run("explicit false disables", func(t *testing.T) {
		v := viper.New()
		v.Set("database.enabled", false)

		cfg := config.Default()
		cfg.Database.Enabled = true
		applyViperOverrides(cfg, v)

		assert.False(t, cfg.Database.Enabled)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "netsweep.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  enabled: true\n"), 0o600))
		t.Setenv("NETSWEEP_DATABASE_ENABLED", "false")

		v := viper.New()
		v.SetConfigFile(path)
		v.SetEnvPrefix("NETSWEEP")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		v.SetDefault("database.enabled", false)
		require.NoError(t, v.ReadInConfig())

		cfg := config.Default()
		cfg.Database.Enabled = true
		applyViperOverrides(cfg, v)

		assert.False(t, cfg.Database.Enabled)
	})

	t.Run("file value kept without environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "netsweep.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  enabled: true\n"), 0o600))

		v := viper.New()
		v.SetConfigFile(path)
		v.SetDefault("database.enabled", false)
		require.NoError(t, v.ReadInConfig())

		cfg := config.Default()
		applyViperOverrides(cfg, v)

		assert.True(t, cfg.Database.Enabled)
	})
}

func TestResolveProfile(t *testing.T) {
	cfg := config.Default()
	cfg.Scanning.Profiles = map[string]profiles.Override{
		"stealth": {PortConcurrency: 2},
	}

	t.Run("config override then flag override", func(t *testing.T) {
		p, err := resolveProfile(cfg, "stealth", profiles.Override{HostConcurrency: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, p.HostConcurrency)
		assert.Equal(t, 2, p.PortConcurrency)
		assert.Equal(t, profiles.Stealth().PortTimeout, p.PortTimeout)
	})

	t.Run("flag port set", func(t *testing.T) {
		p, err := resolveProfile(cfg, "quick", profiles.Override{Ports: "common"})
		require.NoError(t, err)
		assert.Equal(t, 1024, p.PortSet.Size())
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := resolveProfile(cfg, "turbo", profiles.Override{})
		assert.Error(t, err)
	})
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleResult(t))
	out := buf.String()

	assert.Contains(t, out, "Status:            completed")
	assert.Contains(t, out, "Hosts discovered:  2")
	assert.Contains(t, out, "Open ports found:  2")
	assert.Contains(t, out, "web.lan")
	assert.Contains(t, out, "Raspberry Pi")
	assert.Contains(t, out, "192.168.1.10 (web.lan)")
	assert.Contains(t, out, "22/tcp  SSH (SSH-2.0-OpenSSH_9.6)")
	assert.Contains(t, out, "Ports:    22, 80")
	assert.Contains(t, out, noOpenPortsLine)
	assert.Contains(t, out, "approximate")

	// Hosts appear in address order.
	assert.Less(t, strings.Index(out, "192.168.1.2\n"), strings.Index(out, "192.168.1.10 (web.lan)"))
}

func TestPrintReportInterruptedEmpty(t *testing.T) {
	sess := scanning.NewSession("10.0.0.0/30", profiles.Quick())
	result := scanning.NewResult(sess)
	result.Interrupted = true

	var buf bytes.Buffer
	printReport(&buf, result)

	assert.Contains(t, buf.String(), "interrupted (partial results)")
	assert.Contains(t, buf.String(), "No live hosts found.")
}

func TestFormatPorts(t *testing.T) {
	assert.Equal(t, "22", formatPorts([]int{22}))
	assert.Equal(t, "1, 2, 3, 4, 5, 6, 7, 8, 9, 10 ... and 2 more",
		formatPorts([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}))
}

func TestFinishScan(t *testing.T) {
	ctx := context.Background()

	t.Run("export and metrics textfile", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.Default()
		cfg.Export.Directory = dir
		cfg.Metrics.Textfile = filepath.Join(dir, "netsweep.prom")
		result := sampleResult(t)

		var buf bytes.Buffer
		err := finishScan(ctx, &buf, cfg, result, export.FormatJSON, metrics.NewPrometheusMetrics(), logging.Discard())
		require.NoError(t, err)

		exported := filepath.Join(dir, export.FileName(export.FormatJSON, started))
		assert.FileExists(t, exported)
		assert.Contains(t, buf.String(), "Results exported to "+exported)
		assert.FileExists(t, cfg.Metrics.Textfile)
	})

	t.Run("export failure does not skip later steps", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		cfg := config.Default()
		cfg.Export.Directory = filepath.Join(blocker, "exports")
		cfg.Metrics.Textfile = filepath.Join(dir, "netsweep.prom")

		var buf bytes.Buffer
		err := finishScan(ctx, &buf, cfg, sampleResult(t), export.FormatCSV, metrics.NewPrometheusMetrics(), logging.Discard())
		require.Error(t, err)
		assert.True(t, scanerrors.IsCode(err, scanerrors.CodeDirectoryCreate))
		assert.FileExists(t, cfg.Metrics.Textfile)
	})

	t.Run("nothing configured", func(t *testing.T) {
		var buf bytes.Buffer
		err := finishScan(ctx, &buf, config.Default(), sampleResult(t), "", nil, logging.Discard())
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})
}

func TestCommandRegistration(t *testing.T) {
	for _, name := range []string{"quick", "full", "all", "stealth", "profiles", "watch", "history", "config"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}

	quick, _, err := rootCmd.Find([]string{"quick"})
	require.NoError(t, err)
	for _, flag := range []string{"export", "ports", "host-concurrency", "port-concurrency", "ping-timeout", "port-timeout", "no-enrich"} {
		assert.NotNil(t, quick.Flags().Lookup(flag), flag)
	}
	assert.Error(t, quick.Args(quick, nil))
	assert.NoError(t, quick.Args(quick, []string{"10.0.0.0/24"}))
}

func TestDisplayProfiles(t *testing.T) {
	cfg := config.Default()
	cfg.Scanning.Profiles = map[string]profiles.Override{"all": {HostConcurrency: 7}}

	var buf bytes.Buffer
	require.NoError(t, displayProfiles(&buf, cfg))

	out := buf.String()
	for _, name := range profiles.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "65535")
	assert.Contains(t, out, "7")
}

func TestDisplaySessions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, displaySessions(&buf, nil))
	assert.Contains(t, buf.String(), "No scan sessions found.")

	buf.Reset()
	require.NoError(t, displaySessions(&buf, []db.SessionRow{{
		Network:     "192.168.1.0/24",
		Profile:     "quick",
		StartedAt:   started,
		DurationMs:  1500,
		Interrupted: true,
		LiveHosts:   4,
		OpenPorts:   9,
	}}))
	out := buf.String()
	assert.Contains(t, out, "192.168.1.0/24")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "interrupted")
}

func TestErrDatabaseDisabled(t *testing.T) {
	err := errDatabaseDisabled()
	assert.True(t, scanerrors.IsCode(err, scanerrors.CodeConfiguration))
	assert.Contains(t, err.Error(), "database.enabled")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netsweep.yaml")
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, writeDefaultConfig(cmd, path, false))
	assert.Contains(t, buf.String(), path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	defaults := config.Default()
	assert.Equal(t, defaults.Scanning.MaxCandidates, loaded.Scanning.MaxCandidates)
	assert.Equal(t, defaults.Scanning.LivenessMethod, loaded.Scanning.LivenessMethod)
	assert.Equal(t, defaults.Scanning.LookupTimeout, loaded.Scanning.LookupTimeout)

	err = writeDefaultConfig(cmd, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.NoError(t, writeDefaultConfig(cmd, path, true))
}
