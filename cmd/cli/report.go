package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/netsweep/internal/scanning"
)

const (
	maxPortsShown    = 10
	maxServicesShown = 5
	noOpenPortsLine  = "Host alive (no open ports in scanned range)"
)

// printReport writes the scan summary, the host table and per-host details.
// It is printed for interrupted scans too.
func printReport(w io.Writer, result *scanning.Result) {
	hosts := result.Hosts()

	fmt.Fprintln(w, "Scan Summary")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Network:           %s\n", result.Network)
	fmt.Fprintf(w, "Profile:           %s\n", result.Profile)
	if result.Interrupted {
		fmt.Fprintln(w, "Status:            interrupted (partial results)")
	} else {
		fmt.Fprintln(w, "Status:            completed")
	}
	fmt.Fprintf(w, "Hosts discovered:  %d\n", len(result.Live))
	fmt.Fprintf(w, "Open ports found:  %d\n", result.OpenPortCount())
	fmt.Fprintf(w, "Duration:          %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Addresses probed:  %d\n", result.Stats.AddressesProbed)
	fmt.Fprintf(w, "Ports probed:      %d\n", result.Stats.PortsProbed)
	fmt.Fprintf(w, "Average speed:     %.1f addresses/sec\n", result.AddressesPerSecond())

	if len(hosts) == 0 {
		fmt.Fprintln(w, "\nNo live hosts found.")
		return
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header("IP", "Hostname", "MAC", "Vendor", "OS", "Open Ports", "RTT")
	for _, h := range hosts {
		_ = table.Append([]string{
			h.Address().String(),
			orDash(h.Hostname()),
			orDash(h.MAC()),
			orDash(h.Vendor()),
			h.OSGuess(),
			strconv.Itoa(len(h.OpenPorts())),
			fmt.Sprintf("%.1fms", h.ResponseTimeMs()),
		})
	}
	_ = table.Render()

	fmt.Fprintln(w)
	for _, h := range hosts {
		printHostDetails(w, h)
	}
	fmt.Fprintln(w, "Note: OS guesses are based on open ports only and are approximate.")
}

func printHostDetails(w io.Writer, h *scanning.HostRecord) {
	header := h.Address().String()
	if name := h.Hostname(); name != "" {
		header += " (" + name + ")"
	}
	fmt.Fprintln(w, header)

	ports := h.OpenPorts()
	if len(ports) == 0 {
		fmt.Fprintf(w, "  %s\n\n", noOpenPortsLine)
		return
	}

	fmt.Fprintf(w, "  Ports:    %s\n", formatPorts(ports))
	services := h.Services()
	shown := ports
	if len(shown) > maxServicesShown {
		shown = shown[:maxServicesShown]
	}
	for _, p := range shown {
		fmt.Fprintf(w, "  %5d/tcp  %s\n", p, services[p])
	}
	fmt.Fprintln(w)
}

// formatPorts lists the first ports and summarises the rest.
func formatPorts(ports []int) string {
	shown := ports
	if len(shown) > maxPortsShown {
		shown = shown[:maxPortsShown]
	}
	parts := make([]string, len(shown))
	for i, p := range shown {
		parts[i] = strconv.Itoa(p)
	}
	s := strings.Join(parts, ", ")
	if extra := len(ports) - len(shown); extra > 0 {
		s += fmt.Sprintf(" ... and %d more", extra)
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
