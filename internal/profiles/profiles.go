// Package profiles defines the scan profiles and port sets used by netsweep.
// A Profile is an immutable value: overrides produce a new Profile and never
// touch the built-in ones.
package profiles

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PortSet selects which TCP ports the enumeration stage probes.
type PortSet string

const (
	PortSetQuick  PortSet = "quick"
	PortSetCommon PortSet = "common"
	PortSetAll    PortSet = "all"
)

const (
	maxPort       = 65535
	maxCommonPort = 1024
)

var quickPorts = [...]int{21, 22, 23, 25, 53, 80, 110, 135, 139, 143, 443, 993, 995, 1723, 3389, 5900, 8080}

// ParsePortSet validates a port set selector.
func ParsePortSet(s string) (PortSet, error) {
	switch ps := PortSet(strings.ToLower(strings.TrimSpace(s))); ps {
	case PortSetQuick, PortSetCommon, PortSetAll:
		return ps, nil
	default:
		return "", fmt.Errorf("unknown port set %q (want quick, common or all)", s)
	}
}

// Ports returns a fresh, ascending slice of the ports in the set.
func (s PortSet) Ports() []int {
	switch s {
	case PortSetCommon:
		return portRange(1, maxCommonPort)
	case PortSetAll:
		return portRange(1, maxPort)
	default:
		out := make([]int, len(quickPorts))
		copy(out, quickPorts[:])
		return out
	}
}

// Size returns the number of ports in the set without allocating it.
func (s PortSet) Size() int {
	switch s {
	case PortSetCommon:
		return maxCommonPort
	case PortSetAll:
		return maxPort
	default:
		return len(quickPorts)
	}
}

func portRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		out = append(out, p)
	}
	return out
}

// Profile bundles the concurrency caps and timeouts of one scan.
type Profile struct {
	Name            string
	Description     string
	HostConcurrency int
	PortConcurrency int
	LivenessTimeout time.Duration
	PortTimeout     time.Duration
	BannerTimeout   time.Duration
	PortSet         PortSet
}

const (
	defaultHostConcurrency = 100
	defaultPortConcurrency = 50
	defaultLivenessTimeout = time.Second
	defaultPortTimeout     = 500 * time.Millisecond
	defaultBannerTimeout   = time.Second

	stealthHostConcurrency = 10
	stealthPortConcurrency = 5
	stealthLivenessTimeout = 2 * time.Second
	stealthPortTimeout     = time.Second
)

// Quick scans the quick port set at full speed.
func Quick() Profile {
	return Profile{
		Name:            "quick",
		Description:     "Fast sweep of the most common service ports",
		HostConcurrency: defaultHostConcurrency,
		PortConcurrency: defaultPortConcurrency,
		LivenessTimeout: defaultLivenessTimeout,
		PortTimeout:     defaultPortTimeout,
		BannerTimeout:   defaultBannerTimeout,
		PortSet:         PortSetQuick,
	}
}

// Full scans ports 1-1024 at full speed.
func Full() Profile {
	p := Quick()
	p.Name = "full"
	p.Description = "Well-known ports 1-1024"
	p.PortSet = PortSetCommon
	return p
}

// All is Full over every TCP port.
func All() Profile {
	p := Full()
	p.Name = "all"
	p.Description = "Every TCP port 1-65535"
	p.PortSet = PortSetAll
	return p
}

// Stealth trades speed for a lighter footprint.
func Stealth() Profile {
	return Profile{
		Name:            "stealth",
		Description:     "Low concurrency and longer timeouts",
		HostConcurrency: stealthHostConcurrency,
		PortConcurrency: stealthPortConcurrency,
		LivenessTimeout: stealthLivenessTimeout,
		PortTimeout:     stealthPortTimeout,
		BannerTimeout:   defaultBannerTimeout,
		PortSet:         PortSetQuick,
	}
}

var builtins = map[string]func() Profile{
	"quick":   Quick,
	"full":    Full,
	"all":     All,
	"stealth": Stealth,
}

// Lookup returns the built-in profile with the given name.
func Lookup(name string) (Profile, error) {
	ctor, ok := builtins[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
	return ctor(), nil
}

// Names lists the built-in profile names in a stable order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every built-in profile, ordered by name.
func List() []Profile {
	out := make([]Profile, 0, len(builtins))
	for _, name := range Names() {
		out = append(out, builtins[name]())
	}
	return out
}

// Override carries optional replacements for profile fields. Zero values
// leave the field unchanged.
type Override struct {
	HostConcurrency int           `yaml:"host_concurrency" json:"host_concurrency" mapstructure:"host_concurrency" validate:"gte=0"`
	PortConcurrency int           `yaml:"port_concurrency" json:"port_concurrency" mapstructure:"port_concurrency" validate:"gte=0"`
	LivenessTimeout time.Duration `yaml:"liveness_timeout" json:"liveness_timeout" mapstructure:"liveness_timeout" validate:"gte=0"`
	PortTimeout     time.Duration `yaml:"port_timeout" json:"port_timeout" mapstructure:"port_timeout" validate:"gte=0"`
	BannerTimeout   time.Duration `yaml:"banner_timeout" json:"banner_timeout" mapstructure:"banner_timeout" validate:"gte=0"`
	Ports           string        `yaml:"ports" json:"ports" mapstructure:"ports" validate:"omitempty,oneof=quick common all"`
}

// With returns a copy of p with the non-zero fields of o applied.
func (p Profile) With(o Override) (Profile, error) {
	if o.HostConcurrency > 0 {
		p.HostConcurrency = o.HostConcurrency
	}
	if o.PortConcurrency > 0 {
		p.PortConcurrency = o.PortConcurrency
	}
	if o.LivenessTimeout > 0 {
		p.LivenessTimeout = o.LivenessTimeout
	}
	if o.PortTimeout > 0 {
		p.PortTimeout = o.PortTimeout
	}
	if o.BannerTimeout > 0 {
		p.BannerTimeout = o.BannerTimeout
	}
	if o.Ports != "" {
		ps, err := ParsePortSet(o.Ports)
		if err != nil {
			return Profile{}, err
		}
		p.PortSet = ps
	}
	return p, p.Validate()
}

// Validate checks that the profile can drive a scan.
func (p Profile) Validate() error {
	switch {
	case p.HostConcurrency < 1:
		return fmt.Errorf("profile %s: host concurrency must be at least 1", p.Name)
	case p.PortConcurrency < 1:
		return fmt.Errorf("profile %s: port concurrency must be at least 1", p.Name)
	case p.LivenessTimeout <= 0:
		return fmt.Errorf("profile %s: liveness timeout must be positive", p.Name)
	case p.PortTimeout <= 0:
		return fmt.Errorf("profile %s: port timeout must be positive", p.Name)
	case p.BannerTimeout <= 0:
		return fmt.Errorf("profile %s: banner timeout must be positive", p.Name)
	}
	if _, err := ParsePortSet(string(p.PortSet)); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return nil
}

// EnumerationHosts is the number of hosts enumerated at once: half the host
// cap, never less than one.
func (p Profile) EnumerationHosts() int {
	if n := p.HostConcurrency / 2; n > 0 {
		return n
	}
	return 1
}

// PeakPortProbes is the worst-case number of simultaneous port probes.
func (p Profile) PeakPortProbes() int {
	return p.EnumerationHosts() * p.PortConcurrency
}
