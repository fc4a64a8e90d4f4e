package scanning

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T, addr string) *HostRecord {
	t.Helper()
	live := LiveHost{Addr: netip.MustParseAddr(addr), RTT: 1500 * time.Microsecond}
	return NewHostRecord(live, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestHostRecord_Basics(t *testing.T) {
	h := newTestRecord(t, "192.168.1.10")

	assert.Equal(t, netip.MustParseAddr("192.168.1.10"), h.Address())
	assert.InDelta(t, 1.5, h.ResponseTimeMs(), 0.0001)
	assert.Equal(t, 2026, h.DiscoveredAt().Year())
	assert.Empty(t, h.Hostname())
	assert.Empty(t, h.MAC())
	assert.Empty(t, h.OSGuess())
	assert.Empty(t, h.OpenPorts())
	assert.False(t, h.Frozen())
}

func TestHostRecord_PortsSortedAndUnique(t *testing.T) {
	h := newTestRecord(t, "10.0.0.1")

	require.NoError(t, h.AddPort(443, "HTTPS"))
	require.NoError(t, h.AddPort(22, "SSH"))
	require.NoError(t, h.AddPort(80, "HTTP"))
	require.NoError(t, h.AddPort(22, "SSH (OpenSSH_9.6)"))

	assert.Equal(t, []int{22, 80, 443}, h.OpenPorts())

	services := h.Services()
	assert.Len(t, services, 3)
	for _, p := range h.OpenPorts() {
		_, ok := services[p]
		assert.True(t, ok, "port %d has no service label", p)
	}
	label, ok := h.Service(22)
	assert.True(t, ok)
	assert.Equal(t, "SSH", label, "first label wins")
}

func TestHostRecord_ServicesIsCopy(t *testing.T) {
	h := newTestRecord(t, "10.0.0.1")
	require.NoError(t, h.AddPort(22, "SSH"))

	s := h.Services()
	s[9999] = "bogus"

	_, ok := h.Service(9999)
	assert.False(t, ok)
}

func TestHostRecord_SetOnceFields(t *testing.T) {
	h := newTestRecord(t, "10.0.0.1")

	require.NoError(t, h.SetHostname("router.lan"))
	assert.ErrorIs(t, h.SetHostname("other.lan"), ErrAlreadySet)
	assert.Equal(t, "router.lan", h.Hostname())

	require.NoError(t, h.SetHardware("B8:27:EB:01:02:03", "Raspberry Pi"))
	assert.ErrorIs(t, h.SetHardware("00:00:00:00:00:00", "x"), ErrAlreadySet)
	assert.Equal(t, "B8:27:EB:01:02:03", h.MAC())
	assert.Equal(t, "Raspberry Pi", h.Vendor())
}

func TestHostRecord_FreezeRejectsWrites(t *testing.T) {
	h := newTestRecord(t, "10.0.0.1")
	require.NoError(t, h.AddPort(22, "SSH"))
	require.NoError(t, h.AddPort(80, "HTTP"))

	h.Freeze()
	assert.True(t, h.Frozen())
	assert.Equal(t, OSLinuxWeb, h.OSGuess())

	assert.ErrorIs(t, h.AddPort(3389, "RDP"), ErrFrozen)
	assert.ErrorIs(t, h.SetHostname("late.lan"), ErrFrozen)
	assert.ErrorIs(t, h.SetHardware("00:50:56:00:00:01", "VMware"), ErrFrozen)
	assert.Equal(t, []int{22, 80}, h.OpenPorts())

	h.Freeze()
	assert.Equal(t, OSLinuxWeb, h.OSGuess())
}

func TestHostRecord_ConcurrentAddPort(t *testing.T) {
	h := newTestRecord(t, "10.0.0.1")

	var wg sync.WaitGroup
	for p := 1; p <= 200; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_ = h.AddPort(p, "Unknown")
		}(p)
	}
	wg.Wait()

	ports := h.OpenPorts()
	require.Len(t, ports, 200)
	assert.Equal(t, 1, ports[0])
	assert.Equal(t, 200, ports[199])
}

func TestLiveHost_ResponseTimeMs(t *testing.T) {
	lh := LiveHost{RTT: 250 * time.Microsecond}
	assert.InDelta(t, 0.25, lh.ResponseTimeMs(), 0.0001)
}
