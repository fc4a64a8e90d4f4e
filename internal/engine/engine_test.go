package engine

import (
	"bytes"
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	scanerrors "github.com/anstrom/netsweep/internal/errors"
	"github.com/anstrom/netsweep/internal/logging"
	"github.com/anstrom/netsweep/internal/metrics"
	"github.com/anstrom/netsweep/internal/metrics/mocks"
	"github.com/anstrom/netsweep/internal/probe"
	"github.com/anstrom/netsweep/internal/profiles"
	"github.com/anstrom/netsweep/internal/scanning"
)

type stubPinger struct {
	alive map[netip.Addr]bool
	delay time.Duration

	mu    sync.Mutex
	calls int
	hook  func()
}

func (p *stubPinger) Name() string { return "stub" }

func (p *stubPinger) Ping(_ context.Context, addr netip.Addr, _ time.Duration) (time.Duration, error) {
	p.mu.Lock()
	p.calls++
	hook := p.hook
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.alive == nil || p.alive[addr] {
		return time.Millisecond, nil
	}
	return 0, probe.ErrNoReply
}

func (p *stubPinger) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubProber reports the same open ports on every host.
type stubProber struct {
	open map[int]string
}

func (p stubProber) Probe(_ context.Context, _ netip.Addr, port int) (string, error) {
	if label, ok := p.open[port]; ok {
		return label, nil
	}
	return "", errors.New("connection refused")
}

func newTestEngine(pinger *stubPinger, prober scanning.PortProber) *Engine {
	e := New(Options{Pinger: pinger, Prober: prober, Logger: logging.Discard()})
	e.fdLimit = func() (uint64, error) { return 1 << 20, nil }
	return e
}

func TestRun_SSHOnSmallNetwork(t *testing.T) {
	pinger := &stubPinger{}
	prober := stubProber{open: map[int]string{22: "SSH (SSH-2.0-OpenSSH_9.6)"}}
	e := newTestEngine(pinger, prober)

	result, err := e.Run(context.Background(), Request{
		Network: "192.168.1.0/30",
		Profile: profiles.Quick(),
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Interrupted)
	assert.Equal(t, "quick", result.Profile)
	assert.Equal(t, "192.168.1.0/30", result.Network)

	hosts := result.Hosts()
	require.Len(t, hosts, 2)
	assert.Equal(t, "192.168.1.1", hosts[0].Address().String())
	assert.Equal(t, "192.168.1.2", hosts[1].Address().String())
	for _, h := range hosts {
		assert.Equal(t, []int{22}, h.OpenPorts())
		assert.Equal(t, map[int]string{22: "SSH (SSH-2.0-OpenSSH_9.6)"}, h.Services())
		assert.Equal(t, scanning.OSLinux, h.OSGuess())
		assert.True(t, h.Frozen())
	}

	assert.Equal(t, int64(2), result.Stats.AddressesProbed)
	assert.Equal(t, int64(2), result.Stats.LiveHosts)
	assert.Equal(t, int64(2*profiles.Quick().PortSet.Size()), result.Stats.PortsProbed)
	assert.Equal(t, int64(2), result.Stats.OpenPorts)
	assert.Len(t, result.Live, 2)
	assert.Positive(t, result.Duration)
}

func TestRun_StoresMaskedNetwork(t *testing.T) {
	pinger := &stubPinger{}
	e := newTestEngine(pinger, stubProber{})

	result, err := e.Run(context.Background(), Request{
		Network: "192.168.1.10/30",
		Profile: profiles.Quick(),
	})
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.8/30", result.Network)
	assert.Len(t, result.Live, 2)
}

func TestRun_WebServer(t *testing.T) {
	pinger := &stubPinger{alive: map[netip.Addr]bool{netip.MustParseAddr("10.0.0.5"): true}}
	prober := stubProber{open: map[int]string{22: "SSH", 80: "HTTP", 443: "HTTPS"}}
	e := newTestEngine(pinger, prober)

	result, err := e.Run(context.Background(), Request{Network: "10.0.0.0/29", Profile: profiles.Quick()})
	require.NoError(t, err)

	h, ok := result.Host(netip.MustParseAddr("10.0.0.5"))
	require.True(t, ok)
	assert.Equal(t, []int{22, 80, 443}, h.OpenPorts())
	assert.Equal(t, scanning.OSLinuxWeb, h.OSGuess())
	assert.Equal(t, 1, result.Len())
	assert.Equal(t, int64(6), result.Stats.AddressesProbed)
}

func TestRun_MalformedNetwork(t *testing.T) {
	pinger := &stubPinger{}
	e := newTestEngine(pinger, stubProber{})

	result, err := e.Run(context.Background(), Request{Network: "not-a-network", Profile: profiles.Quick()})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, scanerrors.IsCode(err, scanerrors.CodeTargetInvalid))
	assert.Zero(t, pinger.callCount())
}

func TestRun_InvalidProfile(t *testing.T) {
	pinger := &stubPinger{}
	e := newTestEngine(pinger, stubProber{})

	p := profiles.Quick()
	p.PortTimeout = 0
	result, err := e.Run(context.Background(), Request{Network: "10.0.0.0/30", Profile: p})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, scanerrors.IsCode(err, scanerrors.CodeValidation))
	assert.Zero(t, pinger.callCount())
}

func TestRun_InterruptedReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	pinger := &stubPinger{delay: 10 * time.Millisecond}
	pinger.hook = func() { once.Do(cancel) }

	p := profiles.Quick()
	p.HostConcurrency = 1
	e := newTestEngine(pinger, stubProber{open: map[int]string{22: "SSH"}})

	result, err := e.Run(ctx, Request{Network: "10.9.0.0/24", Profile: p})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Interrupted)
	assert.Equal(t, 1, pinger.callCount())
	assert.Equal(t, int64(1), result.Stats.AddressesProbed)
	// enumeration does not start once the session is stopped
	assert.Zero(t, result.Len())
	assert.Len(t, result.Live, 1)
}

func TestRun_WarnsWhenDescriptorBudgetExceeded(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}, &buf)

	e := New(Options{Pinger: &stubPinger{alive: map[netip.Addr]bool{}}, Prober: stubProber{}, Logger: logger})
	e.fdLimit = func() (uint64, error) { return 64, nil }

	_, err := e.Run(context.Background(), Request{Network: "10.0.0.0/30", Profile: profiles.Quick()})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "exceed the open file limit")
	assert.Contains(t, buf.String(), "peak_port_probes=2500")
}

func TestRun_RecordsScanMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)

	rec.EXPECT().ScanStarted("quick").Times(1)
	rec.EXPECT().ScanFinished("quick", metrics.StatusCompleted, gomock.Any()).Times(1)
	rec.EXPECT().LivenessProbe("stub", metrics.OutcomeAlive, gomock.Any()).Times(2)
	rec.EXPECT().PortProbe(gomock.Any()).AnyTimes()
	rec.EXPECT().HostEnumerated(scanning.OSLinux, 1).Times(2)
	rec.EXPECT().LimiterInFlight(gomock.Any(), gomock.Any()).AnyTimes()

	e := New(Options{
		Pinger:  &stubPinger{},
		Prober:  stubProber{open: map[int]string{22: "SSH"}},
		Logger:  logging.Discard(),
		Metrics: rec,
	})
	e.fdLimit = func() (uint64, error) { return 1 << 20, nil }

	_, err := e.Run(context.Background(), Request{Network: "192.168.1.0/30", Profile: profiles.Quick()})
	require.NoError(t, err)
}

func TestRun_MalformedNetworkRecordsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().ScanFinished("stealth", metrics.StatusFailed, time.Duration(0)).Times(1)

	e := New(Options{Pinger: &stubPinger{}, Logger: logging.Discard(), Metrics: rec})
	_, err := e.Run(context.Background(), Request{Network: "2001:db8::/64", Profile: profiles.Stealth()})
	assert.Error(t, err)
}
