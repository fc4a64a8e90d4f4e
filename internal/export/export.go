// Package export writes scan results to JSON or CSV files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	scanerrors "github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/scanning"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644

	fileTimeLayout = "20060102_150405"
)

var csvHeader = []string{"IP", "Hostname", "MAC", "Vendor", "OS", "OpenPorts", "Services"}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", scanerrors.NewConfigFieldError(scanerrors.CodeValidation,
			"unsupported export format", "export", s)
	}
}

// FileName returns the default export file name for a scan started at t.
func FileName(format Format, t time.Time) string {
	return fmt.Sprintf("network_scan_%s.%s", t.Format(fileTimeLayout), format)
}

// hostJSON is the JSON shape of one host.
type hostJSON struct {
	Hostname       string         `json:"hostname"`
	MAC            string         `json:"mac"`
	Vendor         string         `json:"vendor"`
	OS             string         `json:"os"`
	Ports          []int          `json:"ports"`
	Services       map[int]string `json:"services"`
	ResponseTimeMs float64        `json:"response_time_ms"`
	DiscoveredAt   string         `json:"discovered_at"`
}

// WriteJSON encodes the result as an object keyed by address.
func WriteJSON(w io.Writer, result *scanning.Result) error {
	hosts := result.Hosts()
	out := make(map[string]hostJSON, len(hosts))
	for _, h := range hosts {
		out[h.Address().String()] = hostJSON{
			Hostname:       h.Hostname(),
			MAC:            h.MAC(),
			Vendor:         h.Vendor(),
			OS:             h.OSGuess(),
			Ports:          h.OpenPorts(),
			Services:       h.Services(),
			ResponseTimeMs: h.ResponseTimeMs(),
			DiscoveredAt:   h.DiscoveredAt().Format(time.RFC3339),
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes one row per host, sorted by address.
func WriteCSV(w io.Writer, result *scanning.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, h := range result.Hosts() {
		ports := h.OpenPorts()
		services := h.Services()

		portCol := make([]string, 0, len(ports))
		serviceCol := make([]string, 0, len(ports))
		for _, p := range ports {
			portCol = append(portCol, strconv.Itoa(p))
			serviceCol = append(serviceCol, fmt.Sprintf("%d:%s", p, services[p]))
		}

		row := []string{
			h.Address().String(),
			h.Hostname(),
			h.MAC(),
			h.Vendor(),
			h.OSGuess(),
			strings.Join(portCol, ";"),
			strings.Join(serviceCol, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write encodes result in the given format.
func Write(w io.Writer, format Format, result *scanning.Result) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatCSV:
		return WriteCSV(w, result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ToFile writes result into dir using the default file name and returns the
// path written.
func ToFile(dir string, format Format, result *scanning.Result) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", scanerrors.WrapScanErrorWithTarget(scanerrors.CodeDirectoryCreate,
			"failed to create export directory", dir, err)
	}

	path := filepath.Join(dir, FileName(format, result.StartedAt))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return "", scanerrors.WrapScanErrorWithTarget(scanerrors.CodeExportFailed,
			"failed to create export file", path, err)
	}

	if err := Write(f, format, result); err != nil {
		_ = f.Close()
		return "", scanerrors.WrapScanErrorWithTarget(scanerrors.CodeExportFailed,
			"failed to write export", path, err)
	}
	if err := f.Close(); err != nil {
		return "", scanerrors.WrapScanErrorWithTarget(scanerrors.CodeExportFailed,
			"failed to close export file", path, err)
	}
	return path, nil
}
