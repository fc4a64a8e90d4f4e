package scanning

// OS guesses are coarse hints derived only from which ports are open.
const (
	OSWindows        = "Windows"
	OSWindowsRDP     = "Windows (RDP enabled)"
	OSLinux          = "Linux/Unix"
	OSLinuxWeb       = "Linux (Web server)"
	OSNetworkDevice  = "Network Device/Router"
	OSMacOS          = "macOS"
	OSUnknown        = "Unknown"
	maxDevicePortNum = 5
)

var (
	windowsPorts = []int{135, 139, 445}
	devicePorts  = []int{23, 80, 443}
	macPorts     = []int{548, 631}
)

// GuessOS maps a set of open ports to an OS label. The first matching rule
// wins.
func GuessOS(openPorts []int) string {
	open := make(map[int]struct{}, len(openPorts))
	for _, p := range openPorts {
		open[p] = struct{}{}
	}
	has := func(p int) bool {
		_, ok := open[p]
		return ok
	}
	hasAny := func(ports []int) bool {
		for _, p := range ports {
			if has(p) {
				return true
			}
		}
		return false
	}

	switch {
	case hasAny(windowsPorts):
		if has(3389) {
			return OSWindowsRDP
		}
		return OSWindows
	case has(22):
		if has(80) || has(443) {
			return OSLinuxWeb
		}
		return OSLinux
	case hasAny(devicePorts) && len(open) < maxDevicePortNum:
		return OSNetworkDevice
	case hasAny(macPorts):
		return OSMacOS
	default:
		return OSUnknown
	}
}
