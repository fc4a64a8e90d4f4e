package enrich

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

const (
	defaultProcARP = "/proc/net/arp"
	incompleteMAC  = "00:00:00:00:00:00"
	arpFlagsEmpty  = "0x0"
)

var macRe = regexp.MustCompile(`([0-9a-fA-F]{2}[:-]){5}[0-9a-fA-F]{2}`)

// ARPTable reads MAC addresses from the local neighbour cache. Only hosts on
// the same broadcast domain can be resolved.
type ARPTable struct {
	procPath  string
	arpBinary string
}

// NewARPTable reads /proc/net/arp, falling back to `arp -n`.
func NewARPTable() *ARPTable {
	return &ARPTable{procPath: defaultProcARP, arpBinary: "arp"}
}

// Lookup returns the MAC address recorded for addr.
func (t *ARPTable) Lookup(ctx context.Context, addr netip.Addr) (string, error) {
	f, err := os.Open(t.procPath)
	if err == nil {
		defer f.Close()
		entries, err := ParseProcARP(f)
		if err != nil {
			return "", err
		}
		if mac, ok := entries[addr]; ok {
			return mac, nil
		}
		return "", ErrNotFound
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return t.lookupExec(ctx, addr)
}

func (t *ARPTable) lookupExec(ctx context.Context, addr netip.Addr) (string, error) {
	out, err := exec.CommandContext(ctx, t.arpBinary, "-n", addr.String()).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrToolMissing, t.arpBinary)
		}
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	mac, ok := ParseARPOutput(string(out))
	if !ok {
		return "", ErrNotFound
	}
	return mac, nil
}

// ParseProcARP parses the kernel ARP table, skipping incomplete entries.
func ParseProcARP(r io.Reader) (map[netip.Addr]string, error) {
	entries := make(map[netip.Addr]string)
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			continue
		}
		mac := NormalizeMAC(fields[3])
		if fields[2] == arpFlagsEmpty || mac == incompleteMAC {
			continue
		}
		entries[addr] = mac
	}
	return entries, scanner.Err()
}

// ParseARPOutput extracts the first MAC address from `arp -n` output.
func ParseARPOutput(output string) (string, bool) {
	m := macRe.FindString(output)
	if m == "" {
		return "", false
	}
	mac := NormalizeMAC(m)
	if mac == incompleteMAC {
		return "", false
	}
	return mac, true
}
