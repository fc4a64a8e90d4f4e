package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

var (
	// ErrNoReply means the address did not answer within the timeout.
	ErrNoReply = errors.New("no reply")
	// ErrToolMissing means an external program needed by the probe is absent.
	ErrToolMissing = errors.New("required tool not available")
)

const (
	// Extra time granted to a ping subprocess beyond its own -W timeout.
	execGrace = time.Second
	// How long to wait for output pipes after the process is killed.
	execWaitDelay = 100 * time.Millisecond

	icmpProtocol   = 1
	icmpReadBuffer = 1500
)

var pingTimeRe = regexp.MustCompile(`time[=<](\d+\.?\d*)`)

// ExecPinger runs one `ping -c 1` per address.
type ExecPinger struct {
	binary string
}

// NewExecPinger creates a pinger using the system ping binary.
func NewExecPinger() *ExecPinger {
	return &ExecPinger{binary: "ping"}
}

// Name identifies the backend in logs and metrics.
func (p *ExecPinger) Name() string { return "exec" }

// Ping sends a single echo request. The round-trip time is taken from the
// ping output, falling back to the measured wall time.
func (p *ExecPinger) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+execGrace)
	defer cancel()

	waitSecs := int(math.Ceil(timeout.Seconds()))
	if waitSecs < 1 {
		waitSecs = 1
	}

	cmd := exec.CommandContext(ctx, p.binary, "-c", "1", "-W", strconv.Itoa(waitSecs), addr.String())
	cmd.WaitDelay = execWaitDelay

	start := time.Now()
	out, err := cmd.Output()
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrToolMissing, p.binary)
		}
		return 0, fmt.Errorf("%w: %v", ErrNoReply, err)
	}

	if rtt, ok := ParsePingRTT(string(out)); ok {
		return rtt, nil
	}
	return elapsed, nil
}

// ParsePingRTT extracts the round-trip time from ping output.
func ParsePingRTT(output string) (time.Duration, bool) {
	m := pingTimeRe.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	ms, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms * float64(time.Millisecond)), true
}

// ICMPPinger sends echo requests over an unprivileged datagram ICMP socket.
// On Linux this requires net.ipv4.ping_group_range to include the process
// group.
type ICMPPinger struct {
	network string
	id      int
	seq     atomic.Uint32
}

// NewICMPPinger creates a pinger that uses golang.org/x/net/icmp.
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{network: "udp4", id: os.Getpid() & 0xffff}
}

// Name identifies the backend in logs and metrics.
func (p *ICMPPinger) Name() string { return "icmp" }

// Ping sends one echo request and waits for the matching reply.
func (p *ICMPPinger) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error) {
	conn, err := icmp.ListenPacket(p.network, "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("%w: icmp socket: %v", ErrToolMissing, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte("netsweep")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	var dst net.Addr = &net.UDPAddr{IP: addr.AsSlice()}
	if p.network == "ip4:icmp" {
		dst = &net.IPAddr{IP: addr.AsSlice()}
	}

	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoReply, err)
	}

	rb := make([]byte, icmpReadBuffer)
	for {
		n, peer, err := conn.ReadFrom(rb)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoReply, err)
		}
		if peerAddr(peer) != addr {
			continue
		}
		rm, err := icmp.ParseMessage(icmpProtocol, rb[:n])
		if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		if echo, ok := rm.Body.(*icmp.Echo); ok && echo.Seq == seq {
			return time.Since(start), nil
		}
	}
}

func peerAddr(a net.Addr) netip.Addr {
	var ip net.IP
	switch v := a.(type) {
	case *net.UDPAddr:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	out, _ := netip.AddrFromSlice(ip)
	return out.Unmap()
}

// NmapPinger runs an nmap ping scan against a single address.
type NmapPinger struct{}

// NewNmapPinger creates a pinger backed by the nmap binary.
func NewNmapPinger() *NmapPinger {
	return &NmapPinger{}
}

// Name identifies the backend in logs and metrics.
func (p *NmapPinger) Name() string { return "nmap" }

// Ping reports the address alive when nmap marks it up. The RTT is the wall
// time of the nmap run.
func (p *NmapPinger) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+execGrace)
	defer cancel()

	scanner, err := nmap.NewScanner(ctx,
		nmap.WithTargets(addr.String()),
		nmap.WithPingScan(),
		nmap.WithTimingTemplate(nmap.TimingAggressive),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrToolMissing, err)
	}

	start := time.Now()
	result, _, err := scanner.Run()
	elapsed := time.Since(start)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoReply, err)
	}

	for i := range result.Hosts {
		if result.Hosts[i].Status.State == "up" {
			return elapsed, nil
		}
	}
	return 0, ErrNoReply
}

// Pinger is satisfied by every liveness backend.
type Pinger interface {
	Name() string
	Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error)
}

// NewPinger returns the backend for a configured method name.
func NewPinger(method string) (Pinger, error) {
	switch method {
	case "", "exec":
		return NewExecPinger(), nil
	case "icmp":
		return NewICMPPinger(), nil
	case "nmap":
		return NewNmapPinger(), nil
	default:
		return nil, fmt.Errorf("unknown liveness method %q", method)
	}
}

// MissingTools reports which of the external programs used by netsweep are
// not on PATH.
func MissingTools() []string {
	var missing []string
	for _, tool := range []string{"ping", "nmap", "arp"} {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}
